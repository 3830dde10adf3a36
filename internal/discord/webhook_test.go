package discord

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/djeex/nvidia-stock-bot/internal/engine"
	"github.com/djeex/nvidia-stock-bot/internal/locale"
)

func testBundle() locale.Bundle {
	return locale.Bundle{
		Language:        "en",
		InStockTitle:    "🟢 {gpu_name} IN STOCK",
		OutOfStockTitle: "🔴 {gpu_name} out of stock",
		SkuChangeTitle:  "🟡 SKU change for {gpu_name}",
		BuyNow:          "[Buy now]({product_link})",
		PriceLabel:      "Price",
		TimeLabel:       "Time",
		Footer:          "{DISCORD_SERVER_NAME}",
		SkuDescription:  "`{old_sku}` → `{new_sku}`",
		ImminentDrop:    "{DISCORD_ROLE} drop imminent!",
	}
}

// capture runs a webhook server that records the last JSON body.
func capture(t *testing.T, status int) (*httptest.Server, *map[string]any, *int) {
	t.Helper()
	var body map[string]any
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("payload is not JSON: %v", err)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &body, &calls
}

func newWebhook(url string) *Webhook {
	return &Webhook{
		URL:        url,
		ServerName: "My Server",
		ProductURL: "https://marketplace.example/cards",
		Currency:   "€",
		Roles:      map[string]string{"RTX 5090": "<@&123456789012345678>"},
		Bundle:     testBundle(),
		Now:        func() time.Time { return time.Unix(1700000000, 0) },
	}
}

func firstEmbed(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	embeds, ok := body["embeds"].([]any)
	if !ok || len(embeds) != 1 {
		t.Fatalf("expected one embed, got %v", body["embeds"])
	}
	return embeds[0].(map[string]any)
}

func TestNotify_InStockPayload(t *testing.T) {
	srv, body, _ := capture(t, http.StatusNoContent)
	w := newWebhook(srv.URL)

	err := w.Notify(context.Background(), engine.Event{
		Kind: engine.KindInStock, Product: "RTX 5090", Price: "2329.000000",
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if (*body)["username"] != "NviBot" {
		t.Fatalf("expected NviBot username, got %v", (*body)["username"])
	}
	if (*body)["content"] != "<@&123456789012345678>" {
		t.Fatalf("expected role mention content, got %v", (*body)["content"])
	}

	e := firstEmbed(t, *body)
	if e["title"] != "🟢 RTX 5090 IN STOCK" {
		t.Fatalf("unexpected title %v", e["title"])
	}
	if e["color"].(float64) != 3066993 {
		t.Fatalf("expected green color, got %v", e["color"])
	}

	fields := e["fields"].([]any)
	price := fields[0].(map[string]any)
	if price["value"] != "`€2329`" {
		t.Fatalf("expected normalized price span, got %v", price["value"])
	}
	clock := fields[1].(map[string]any)
	if clock["value"] != "<t:1700000000:d> <t:1700000000:T>" {
		t.Fatalf("expected discord time tokens, got %v", clock["value"])
	}
	if !strings.Contains(e["description"].(string), "https://marketplace.example/cards") {
		t.Fatalf("expected buy link in description, got %v", e["description"])
	}
	if e["footer"].(map[string]any)["text"] != "My Server" {
		t.Fatalf("expected server name in footer, got %v", e["footer"])
	}
}

func TestNotify_OutOfStockPayload(t *testing.T) {
	srv, body, _ := capture(t, http.StatusNoContent)
	w := newWebhook(srv.URL)

	err := w.Notify(context.Background(), engine.Event{
		Kind: engine.KindOutOfStock, Product: "RTX 5090", Price: "2329.0",
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	// no mention on the way down
	if _, ok := (*body)["content"]; ok {
		t.Fatalf("out-of-stock payload must carry no content mention, got %v", (*body)["content"])
	}
	e := firstEmbed(t, *body)
	if e["color"].(float64) != 15158332 {
		t.Fatalf("expected red color, got %v", e["color"])
	}
	if e["url"] != "https://marketplace.example/cards" {
		t.Fatalf("expected product url on embed, got %v", e["url"])
	}
}

func TestNotify_SkuChangePayload(t *testing.T) {
	srv, body, _ := capture(t, http.StatusNoContent)
	w := newWebhook(srv.URL)

	err := w.Notify(context.Background(), engine.Event{
		Kind: engine.KindSkuChange, Product: "RTX 5090", OldSKU: "A", NewSKU: "B",
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if (*body)["content"] != "<@&123456789012345678> drop imminent!" {
		t.Fatalf("expected imminent drop content, got %v", (*body)["content"])
	}
	e := firstEmbed(t, *body)
	if e["color"].(float64) != 16776960 {
		t.Fatalf("expected yellow color, got %v", e["color"])
	}
	if e["description"] != "`A` → `B`" {
		t.Fatalf("unexpected sku description %v", e["description"])
	}
}

func TestNotify_TestModeSkipsNetwork(t *testing.T) {
	srv, _, calls := capture(t, http.StatusNoContent)
	w := newWebhook(srv.URL)
	w.TestMode = true

	err := w.Notify(context.Background(), engine.Event{Kind: engine.KindInStock, Product: "RTX 5090"})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if *calls != 0 {
		t.Fatalf("test mode must not call the webhook, got %d calls", *calls)
	}
}

func TestNotify_Non204IsAnError(t *testing.T) {
	srv, _, _ := capture(t, http.StatusTooManyRequests)
	w := newWebhook(srv.URL)

	err := w.Notify(context.Background(), engine.Event{Kind: engine.KindInStock, Product: "RTX 5090"})
	if err == nil {
		t.Fatalf("expected delivery error on non-204")
	}
}

func TestNotify_UnknownProductMentionsEveryone(t *testing.T) {
	srv, body, _ := capture(t, http.StatusNoContent)
	w := newWebhook(srv.URL)

	err := w.Notify(context.Background(), engine.Event{Kind: engine.KindInStock, Product: "RTX 5080"})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if (*body)["content"] != "@everyone" {
		t.Fatalf("expected @everyone fallback, got %v", (*body)["content"])
	}
}

func TestDisplayPrice(t *testing.T) {
	if got := displayPrice("2329.000000"); got != "2329" {
		t.Fatalf("expected trailing zeros trimmed, got %q", got)
	}
	if got := displayPrice("1999.99"); got != "1999.99" {
		t.Fatalf("expected decimals kept, got %q", got)
	}
	if got := displayPrice("Price not available"); got != "Price not available" {
		t.Fatalf("sentinel must pass through, got %q", got)
	}
}
