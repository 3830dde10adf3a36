package engine

import "context"

// EventKind selects the notification template and embed style.
type EventKind string

const (
	KindInStock    EventKind = "in_stock"
	KindOutOfStock EventKind = "out_of_stock"
	KindSkuChange  EventKind = "sku_change"
)

// Event is one detected transition for a tracked product.
type Event struct {
	Kind    EventKind
	Product string

	// stock events
	UPC   string
	Price string

	// sku change events
	OldSKU string
	NewSKU string
}

// Notifier delivers events. Implementations own their failure handling;
// the engine logs a returned error and moves on, it never aborts a cycle
// over delivery.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}
