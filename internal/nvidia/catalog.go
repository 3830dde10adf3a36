package nvidia

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/djeex/nvidia-stock-bot/internal/httpx"
)

// CatalogClient resolves tracked product names against the partner catalog.
type CatalogClient struct {
	URL       string
	HTTP      *httpx.Client
	Substring bool // opt-in loose matching; default is exact match after trim
	Logger    *log.Logger
}

type catalogResponse struct {
	SearchedProducts struct {
		ProductDetails []catalogProduct `json:"productDetails"`
	} `json:"searchedProducts"`
}

// productUPC arrives as either a scalar string or a list, so it stays raw
// until normalizeUPCs.
type catalogProduct struct {
	GPU        string          `json:"gpu"`
	ProductSKU string          `json:"productSKU"`
	ProductUPC json.RawMessage `json:"productUPC"`
}

// ResolveIdentities fetches the catalog once and maps each tracked name to
// its current identity. Names with no catalog match are simply absent from
// the result. Transport and parse failures are returned as errors without a
// partial result.
func (c *CatalogClient) ResolveIdentities(ctx context.Context, names []string) (map[string]ProductIdentity, error) {
	var resp catalogResponse
	if err := c.HTTP.GetJSON(ctx, c.URL, &resp); err != nil {
		return nil, fmt.Errorf("nvidia: catalog: %w", err)
	}

	products := resp.SearchedProducts.ProductDetails
	out := make(map[string]ProductIdentity, len(names))

	for _, name := range names {
		found := false
		for _, p := range products {
			if p.ProductSKU == "" || !c.matches(p.GPU, name) {
				continue
			}
			out[name] = ProductIdentity{
				SKU:  p.ProductSKU,
				UPCs: normalizeUPCs(p.ProductUPC),
			}
			found = true
			break
		}
		if !found {
			c.log().Warn("no catalog match", "product", name)
		}
	}

	return out, nil
}

func (c *CatalogClient) matches(gpu, name string) bool {
	gpu = strings.TrimSpace(gpu)
	if c.Substring {
		return strings.Contains(strings.ToLower(gpu), strings.ToLower(name))
	}
	return gpu == name
}

// normalizeUPCs turns the scalar-or-list vendor field into a non-empty
// ordered slice.
func normalizeUPCs(raw json.RawMessage) []string {
	if len(raw) > 0 {
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			return list
		}
		var single string
		if err := json.Unmarshal(raw, &single); err == nil {
			return []string{single}
		}
	}
	return []string{""}
}

func (c *CatalogClient) log() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}
