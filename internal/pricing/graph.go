package pricing

import "pricingcli/pkg/contracts/domain"

// Graph is the merged parent to children adjacency of every composition
// seen so far. Codes keep the order in which they were first defined so
// that every traversal is deterministic.
//
// The first source that defines a parent owns it: later blocks for the same
// parent from that source append children (a breakdown split over several
// header rows), blocks from other sources are ignored.
type Graph struct {
	order    []string
	children map[string][]domain.CompositionChild
	owner    map[string]domain.SourceTag
}

// NewGraph returns an empty graph
func NewGraph() *Graph {
	return &Graph{
		children: make(map[string][]domain.CompositionChild),
		owner:    make(map[string]domain.SourceTag),
	}
}

// Add merges one composition block. It reports whether the block changed
// the graph.
func (g *Graph) Add(block domain.CompositionBlock) bool {
	if block.Code == "" {
		return false
	}
	owner, exists := g.owner[block.Code]
	if !exists {
		g.order = append(g.order, block.Code)
		g.owner[block.Code] = block.Source
		g.children[block.Code] = append([]domain.CompositionChild(nil), block.Children...)
		return true
	}
	if owner != block.Source {
		return false
	}
	g.children[block.Code] = append(g.children[block.Code], block.Children...)
	return len(block.Children) > 0
}

// Has reports whether code is a composition
func (g *Graph) Has(code string) bool {
	_, ok := g.owner[code]
	return ok
}

// Children returns the direct components of code in source order
func (g *Graph) Children(code string) []domain.CompositionChild {
	return g.children[code]
}

// Source returns the library that defined code
func (g *Graph) Source(code string) (domain.SourceTag, bool) {
	src, ok := g.owner[code]
	return src, ok
}

// Codes returns every composition code in definition order
func (g *Graph) Codes() []string {
	return g.order
}

// Len returns the number of compositions
func (g *Graph) Len() int {
	return len(g.order)
}
