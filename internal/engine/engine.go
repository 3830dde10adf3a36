// Package engine holds the stock and SKU change-detection core: one cycle
// compares the vendor's current answers against retained state and fans out
// exactly one notification per genuine transition.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/djeex/nvidia-stock-bot/internal/nvidia"
)

// Catalog resolves tracked names to their current identities, one batch
// fetch per cycle.
type Catalog interface {
	ResolveIdentities(ctx context.Context, names []string) (map[string]nvidia.ProductIdentity, error)
}

// Inventory checks availability for one resolved SKU.
type Inventory interface {
	CheckAvailability(ctx context.Context, sku string) ([]nvidia.InventoryEntry, error)
}

// Engine runs one polling cycle at a time over the configured products.
// It is the only writer of State.
type Engine struct {
	Catalog   Catalog
	Inventory Inventory
	Notifier  Notifier
	Products  []string // configured order, also event order
	State     *TransitionState
	Logger    *log.Logger
}

// RunCycle performs one full pass: one catalog fetch, one inventory fetch
// per resolved product, and zero or more notifications. A catalog failure
// aborts the cycle with no state touched; a per-product failure skips just
// that product. The error return is informational for the loop's log; state
// mutations already made stay committed.
func (e *Engine) RunCycle(ctx context.Context) error {
	logger := e.log().With("cycle", shortCycleID())

	identities, err := e.Catalog.ResolveIdentities(ctx, e.Products)
	if err != nil {
		return fmt.Errorf("engine: resolve identities: %w", err)
	}

	for _, name := range e.Products {
		if err := ctx.Err(); err != nil {
			return err
		}

		id, ok := identities[name]
		if !ok {
			logger.Warn("product unresolved, skipping", "product", name)
			continue
		}

		e.checkProduct(ctx, logger, name, id)
	}

	return nil
}

// checkProduct runs steps 3-7 of a cycle for one product: SKU comparison
// first, then the per-UPC stock comparison, in UPC order.
func (e *Engine) checkProduct(ctx context.Context, logger *log.Logger, name string, id nvidia.ProductIdentity) {
	oldSKU, changed := e.State.ObserveSKU(name, id.SKU)
	if changed {
		logger.Warn("sku changed", "product", name, "old", oldSKU, "new", id.SKU)
		e.emit(ctx, logger, Event{
			Kind:    KindSkuChange,
			Product: name,
			OldSKU:  oldSKU,
			NewSKU:  id.SKU,
		})
	}

	entries, err := e.Inventory.CheckAvailability(ctx, id.SKU)
	if err != nil {
		logger.Error("inventory check failed, skipping product", "product", name, "sku", id.SKU, "err", err)
		return
	}

	price := nvidia.SKUPrice(entries)
	found := foundInStock(entries, id.UPCs)

	for _, upc := range id.UPCs {
		current := found[strings.ToUpper(upc)]
		previous := e.State.InStock(name, upc)

		switch {
		case current && !previous:
			e.State.SetInStock(name, upc, true)
			logger.Info("now in stock", "product", name, "upc", upc, "price", price)
			e.emit(ctx, logger, Event{Kind: KindInStock, Product: name, UPC: upc, Price: price})
		case !current && previous:
			e.State.SetInStock(name, upc, false)
			logger.Info("now out of stock", "product", name, "upc", upc)
			e.emit(ctx, logger, Event{Kind: KindOutOfStock, Product: name, UPC: upc, Price: price})
		case current:
			logger.Debug("still in stock", "product", name, "upc", upc)
		default:
			logger.Debug("still out of stock", "product", name, "upc", upc)
		}
	}
}

// foundInStock collects the UPCs considered available: an active entry whose
// compound vendor SKU contains the UPC, case-insensitively. Substring
// containment, not equality; the vendor embeds the UPC in a larger token.
func foundInStock(entries []nvidia.InventoryEntry, upcs []string) map[string]bool {
	found := make(map[string]bool)
	for _, entry := range entries {
		if !entry.Active {
			continue
		}
		vendorSKU := strings.ToUpper(entry.SKU)
		for _, upc := range upcs {
			if strings.Contains(vendorSKU, strings.ToUpper(upc)) {
				found[strings.ToUpper(upc)] = true
			}
		}
	}
	return found
}

func (e *Engine) emit(ctx context.Context, logger *log.Logger, ev Event) {
	if err := e.Notifier.Notify(ctx, ev); err != nil {
		logger.Error("notification delivery failed", "kind", ev.Kind, "product", ev.Product, "err", err)
	}
}

func (e *Engine) log() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

// shortCycleID tags a cycle's log lines with a compact correlation id.
func shortCycleID() string {
	return uuid.NewString()[:8]
}
