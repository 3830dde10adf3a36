// Package nvidia wraps the partner catalog and store inventory APIs and
// normalizes their inconsistently shaped responses into fixed types.
package nvidia

// PriceUnavailable is the vendor's price sentinel. Entries without a usable
// price carry it verbatim, and it is what notifications show when no entry
// for a SKU has a price.
const PriceUnavailable = "Price not available"

// ProductIdentity is the catalog resolution for one tracked product. It is
// re-resolved every cycle; neither the SKU nor the UPC set is assumed stable.
type ProductIdentity struct {
	SKU  string
	UPCs []string // always at least one entry
}

// InventoryEntry is one normalized row of the store inventory response.
type InventoryEntry struct {
	SKU    string // vendor compound fe_sku field, may embed a UPC
	Active bool
	Price  string // PriceUnavailable when the row has none
}

// SKUPrice scans entries in response order and returns the first usable
// price, or PriceUnavailable. The result is cycle-local and product-wide,
// not per UPC.
func SKUPrice(entries []InventoryEntry) string {
	for _, e := range entries {
		if e.Price != "" && e.Price != PriceUnavailable {
			return e.Price
		}
	}
	return PriceUnavailable
}
