package nvidia

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/djeex/nvidia-stock-bot/internal/httpx"
)

// InventoryClient checks per-SKU availability against the store inventory
// API. BaseURL carries a trailing skus= parameter; the SKU is appended.
type InventoryClient struct {
	BaseURL string
	HTTP    *httpx.Client
	Logger  *log.Logger
}

type inventoryResponse struct {
	ListMap []inventoryRow `json:"listMap"`
}

// is_active is a string flag, not a boolean; the vendor types it
// inconsistently and only the string literal "true" means active. Both it
// and price stay raw so an off-type value degrades instead of failing the
// whole decode.
type inventoryRow struct {
	FeSKU    string          `json:"fe_sku"`
	IsActive json.RawMessage `json:"is_active"`
	Price    json.RawMessage `json:"price"`
}

// rawString unwraps a JSON string; any other shape is rendered as its raw
// text so a numeric price still displays.
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// CheckAvailability fetches the inventory for one SKU and normalizes the
// rows. An empty or missing listMap is zero entries, not an error; transport
// failures, non-2xx statuses and unparseable bodies propagate.
func (c *InventoryClient) CheckAvailability(ctx context.Context, sku string) ([]InventoryEntry, error) {
	url := c.BaseURL + sku

	var resp inventoryResponse
	if err := c.HTTP.GetJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("nvidia: inventory %s: %w", sku, err)
	}

	if len(resp.ListMap) == 0 {
		c.log().Warn("inventory list empty or malformed", "sku", sku)
		return nil, nil
	}

	entries := make([]InventoryEntry, 0, len(resp.ListMap))
	for _, row := range resp.ListMap {
		price := rawString(row.Price)
		if price == "" {
			price = PriceUnavailable
		}
		entries = append(entries, InventoryEntry{
			SKU:    row.FeSKU,
			Active: string(row.IsActive) == `"true"`,
			Price:  price,
		})
	}
	return entries, nil
}

func (c *InventoryClient) log() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}
