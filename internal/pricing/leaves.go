package pricing

import "pricingcli/pkg/contracts/domain"

// LeafPrices maps codes to unit prices read directly from price tables.
// Only positive prices are kept and the first writer for a code wins, so
// the merge order of sources is the priority order.
type LeafPrices struct {
	prices map[string]float64
	source map[string]domain.SourceTag
	order  []string
}

// NewLeafPrices returns an empty table
func NewLeafPrices() *LeafPrices {
	return &LeafPrices{
		prices: make(map[string]float64),
		source: make(map[string]domain.SourceTag),
	}
}

// Offer records price for code unless the code is already priced or the
// price is not positive. It reports whether the price was taken.
func (l *LeafPrices) Offer(code string, price float64, source domain.SourceTag) bool {
	if code == "" || price <= 0 {
		return false
	}
	if _, exists := l.prices[code]; exists {
		return false
	}
	l.prices[code] = price
	l.source[code] = source
	l.order = append(l.order, code)
	return true
}

// Get returns the leaf price of code
func (l *LeafPrices) Get(code string) (float64, bool) {
	p, ok := l.prices[code]
	return p, ok
}

// Source returns the library that supplied the price of code
func (l *LeafPrices) Source(code string) (domain.SourceTag, bool) {
	s, ok := l.source[code]
	return s, ok
}

// Len returns the number of priced codes
func (l *LeafPrices) Len() int {
	return len(l.order)
}
