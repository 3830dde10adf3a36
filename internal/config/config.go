package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Match mode for catalog name resolution. Substring matching risks
// cross-matching product tiers ("RTX 5070" vs "RTX 5070 Ti"), so it is
// opt-in only.
const (
	MatchExact     = "exact"
	MatchSubstring = "substring"
)

const (
	defaultLocale   = "fr-fr"
	defaultLanguage = "en"

	defaultCatalogURL   = "https://api.nvidia.partners/edge/product/search?page=1&limit=100&locale=%s&Manufacturer=Nvidia"
	defaultInventoryURL = "https://api.store.nvidia.com/partner/v1/feinventory?locale=%s&skus="
	defaultProductURL   = "https://marketplace.nvidia.com/%s/consumer/graphics-cards/?locale=%s&page=1&limit=12&manufacturer=NVIDIA"

	everyone = "@everyone"
)

var roleMentionRe = regexp.MustCompile(`^<@&\d{17,20}>$`)

// Config is the immutable run configuration assembled from the environment.
type Config struct {
	WebhookURL    string
	WebhookMasked string // safe for logs
	ServerName    string

	ProductNames []string          // tracked products, in configured order
	RoleMentions map[string]string // product name -> mention token

	RefreshEvery time.Duration
	TestMode     bool
	MatchMode    string

	Language string // notification language code
	Locale   string // store locale, e.g. fr-fr
	Currency string // display symbol derived from locale

	CatalogURL   string
	InventoryURL string // carries a trailing skus= parameter
	ProductURL   string

	LocalizationFile string
}

// Load reads an optional .env, then assembles and validates the configuration.
// Any returned error is fatal for the process.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		WebhookURL:       os.Getenv("DISCORD_WEBHOOK_URL"),
		ServerName:       getenv("DISCORD_SERVER_NAME", "Shared for free"),
		Language:         strings.ToLower(getenv("DISCORD_NOTIFICATION_LANGUAGE", defaultLanguage)),
		Locale:           strings.ToLower(getenv("LOCALE", defaultLocale)),
		TestMode:         strings.EqualFold(getenv("TEST_MODE", "false"), "true"),
		MatchMode:        getenv("MATCH_MODE", MatchExact),
		LocalizationFile: getenv("LOCALIZATION_FILE", "localization.json"),
	}

	if cfg.WebhookURL == "" {
		return Config{}, fmt.Errorf("config: DISCORD_WEBHOOK_URL is required")
	}
	cfg.WebhookMasked = maskWebhook(cfg.WebhookURL)

	names, err := parseProductNames(os.Getenv("PRODUCT_NAMES"))
	if err != nil {
		return Config{}, err
	}
	cfg.ProductNames = names

	refresh := os.Getenv("REFRESH_TIME")
	if refresh == "" {
		return Config{}, fmt.Errorf("config: REFRESH_TIME is required")
	}
	seconds, err := strconv.Atoi(refresh)
	if err != nil || seconds <= 0 {
		return Config{}, fmt.Errorf("config: REFRESH_TIME must be a positive integer number of seconds, got %q", refresh)
	}
	cfg.RefreshEvery = time.Duration(seconds) * time.Second

	if cfg.MatchMode != MatchExact && cfg.MatchMode != MatchSubstring {
		return Config{}, fmt.Errorf("config: MATCH_MODE must be %q or %q, got %q", MatchExact, MatchSubstring, cfg.MatchMode)
	}

	roles, err := parseRoleMentions(os.Getenv("DISCORD_ROLES"), names)
	if err != nil {
		return Config{}, err
	}
	cfg.RoleMentions = roles

	cfg.Currency = currencyFor(cfg.Locale)
	cfg.CatalogURL = getenv("API_URL_SKU", fmt.Sprintf(defaultCatalogURL, cfg.Locale))
	cfg.InventoryURL = getenv("API_URL_STOCK", fmt.Sprintf(defaultInventoryURL, cfg.Locale))
	cfg.ProductURL = getenv("PRODUCT_URL", fmt.Sprintf(defaultProductURL, cfg.Locale, cfg.Locale))

	return cfg, nil
}

func parseProductNames(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("config: PRODUCT_NAMES is required")
	}
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if name == "" {
			return nil, fmt.Errorf("config: PRODUCT_NAMES contains an empty entry")
		}
		names = append(names, name)
	}
	return names, nil
}

// parseRoleMentions zips DISCORD_ROLES with the product names. An empty or
// absent list mentions @everyone for every product; a blank entry defaults to
// @everyone; anything else must be a <@&ID> mention with a 17-20 digit ID.
func parseRoleMentions(raw string, names []string) (map[string]string, error) {
	mentions := make(map[string]string, len(names))

	if strings.TrimSpace(raw) == "" {
		for _, name := range names {
			mentions[name] = everyone
		}
		return mentions, nil
	}

	parts := strings.Split(raw, ",")
	if len(parts) != len(names) {
		return nil, fmt.Errorf("config: DISCORD_ROLES has %d entries but PRODUCT_NAMES has %d", len(parts), len(names))
	}

	for i, p := range parts {
		role := strings.TrimSpace(p)
		if role == "" {
			role = everyone
		}
		if role != everyone && !roleMentionRe.MatchString(role) {
			return nil, fmt.Errorf("config: invalid DISCORD_ROLES entry for %q: %q", names[i], role)
		}
		mentions[names[i]] = role
	}
	return mentions, nil
}

func currencyFor(locale string) string {
	switch locale {
	case "en-us", "us":
		return "$"
	case "en-gb", "gb":
		return "£"
	default:
		return "€"
	}
}

var webhookRe = regexp.MustCompile(`/(\d+)/([^/]+)$`)

// maskWebhook blanks the tail of the webhook ID and token so the URL can be
// logged at startup without being reusable.
func maskWebhook(url string) string {
	m := webhookRe.FindStringSubmatch(url)
	if m == nil {
		return "[Invalid webhook URL]"
	}
	return fmt.Sprintf("https://discord.com/api/webhooks/%s/%s", maskTail(m[1], 10), maskTail(m[2], 120))
}

func maskTail(s string, n int) string {
	if n > len(s) {
		n = len(s)
	}
	return s[:len(s)-n] + strings.Repeat("*", 10)
}

func getenv(key string, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
