package locale

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// requiredKeys is the set of template keys every usable language must end up
// with, after the English fallback has been applied.
var requiredKeys = []string{
	"in_stock_title",
	"out_of_stock_title",
	"sku_change_title",
	"buy_now",
	"price",
	"time",
	"footer",
	"sku_description",
	"imminent_drop",
}

// Bundle holds the resolved notification strings for one language.
type Bundle struct {
	Language string

	InStockTitle    string
	OutOfStockTitle string
	SkuChangeTitle  string
	BuyNow          string
	PriceLabel      string
	TimeLabel       string
	Footer          string
	SkuDescription  string
	ImminentDrop    string
}

// Load reads a language -> key -> string bundle file and resolves the strings
// for the requested language. Keys missing from the requested language fall
// back to English per key; a key absent from both is an error, as is a file
// with neither the requested language nor English.
func Load(path string, language string) (Bundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Bundle{}, fmt.Errorf("locale: read %s: %w", path, err)
	}

	var byLang map[string]map[string]string
	if err := json.Unmarshal(raw, &byLang); err != nil {
		return Bundle{}, fmt.Errorf("locale: parse %s: %w", path, err)
	}

	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = "en"
	}

	fallback := byLang["en"]
	selected := byLang[language]
	if len(selected) == 0 {
		selected = fallback
		language = "en"
	}
	if len(selected) == 0 {
		return Bundle{}, fmt.Errorf("locale: no strings for %q and no english fallback in %s", language, path)
	}

	resolved := make(map[string]string, len(requiredKeys))
	for _, key := range requiredKeys {
		v, ok := selected[key]
		if !ok {
			v, ok = fallback[key]
		}
		if !ok {
			return Bundle{}, fmt.Errorf("locale: key %q missing for %q and for english fallback", key, language)
		}
		resolved[key] = v
	}

	return Bundle{
		Language:        language,
		InStockTitle:    resolved["in_stock_title"],
		OutOfStockTitle: resolved["out_of_stock_title"],
		SkuChangeTitle:  resolved["sku_change_title"],
		BuyNow:          resolved["buy_now"],
		PriceLabel:      resolved["price"],
		TimeLabel:       resolved["time"],
		Footer:          resolved["footer"],
		SkuDescription:  resolved["sku_description"],
		ImminentDrop:    resolved["imminent_drop"],
	}, nil
}

// Expand substitutes {name} placeholders in a template string.
func Expand(template string, vars map[string]string) string {
	out := template
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}
