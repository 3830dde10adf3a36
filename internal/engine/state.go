package engine

import (
	"strings"
	"sync"
)

type stockKey struct {
	Product string
	UPC     string
}

// TransitionState is the in-process memory the engine compares each cycle
// against. It lives for the process lifetime and resets to unknown on
// restart; entries are only ever overwritten, never removed.
type TransitionState struct {
	mu      sync.RWMutex
	lastSKU map[string]string
	seen    map[string]bool
	stock   map[stockKey]bool
}

func NewTransitionState() *TransitionState {
	return &TransitionState{
		lastSKU: make(map[string]string),
		seen:    make(map[string]bool),
		stock:   make(map[stockKey]bool),
	}
}

// ObserveSKU records the SKU resolved for a product this cycle and reports
// whether that is a change. The first successful resolution never counts as
// a change; lastSKU and the seen flag update unconditionally either way.
func (s *TransitionState) ObserveSKU(product, sku string) (oldSKU string, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldSKU = s.lastSKU[product]
	changed = s.seen[product] && oldSKU != sku

	s.lastSKU[product] = sku
	s.seen[product] = true
	return oldSKU, changed
}

// InStock reports the last known stock state for a UPC; a UPC never seen
// before reads as not in stock so the first sighting raises an event.
func (s *TransitionState) InStock(product, upc string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stock[stockKey{Product: product, UPC: normalizeUPC(upc)}]
}

func (s *TransitionState) SetInStock(product, upc string, inStock bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[stockKey{Product: product, UPC: normalizeUPC(upc)}] = inStock
}

// LastSKU exposes the retained SKU for a product.
func (s *TransitionState) LastSKU(product string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sku, ok := s.lastSKU[product]
	return sku, ok
}

// Seen reports whether the product has resolved at least once.
func (s *TransitionState) Seen(product string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seen[product]
}

// UPC comparisons are case-insensitive throughout; keys are stored upper.
func normalizeUPC(upc string) string {
	return strings.ToUpper(upc)
}
