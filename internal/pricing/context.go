package pricing

import (
	"log/slog"

	"pricingcli/pkg/contracts/domain"
)

// ResolutionContext owns all state of one pricing run: the composition
// graph, the leaf price table, the merged source fragments, the solver
// result and the set of codes that were expanded. Nothing is shared between
// contexts, so independent runs never see each other's data.
type ResolutionContext struct {
	Graph  *Graph
	Leaves *LeafPrices

	fragments []domain.SourceFragment
	solution  *Solution
	expanded  *CodeSet
	maxPasses int
	logger    *slog.Logger
}

// NewResolutionContext returns an empty context. maxPasses <= 0 selects
// DefaultMaxPasses.
func NewResolutionContext(maxPasses int, logger *slog.Logger) *ResolutionContext {
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolutionContext{
		Graph:     NewGraph(),
		Leaves:    NewLeafPrices(),
		expanded:  NewCodeSet(),
		maxPasses: maxPasses,
		logger:    logger.With(slog.String("component", "pricing")),
	}
}

// Merge adds a parsed fragment. Fragments must be merged in priority order:
// leaf prices keep their first writer and compositions their first owner.
// Merging invalidates a previous Solve.
func (c *ResolutionContext) Merge(frag domain.SourceFragment) {
	taken := 0
	for _, lp := range frag.Prices {
		if c.Leaves.Offer(lp.Code, lp.Price, frag.Source) {
			taken++
		}
	}
	added := 0
	for _, block := range frag.Compositions {
		if c.Graph.Add(block) {
			added++
		}
	}
	c.fragments = append(c.fragments, frag)
	c.solution = nil

	c.logger.Debug("Fragment merged",
		slog.String("source", string(frag.Source)),
		slog.String("sheet", frag.Sheet),
		slog.Int("prices_taken", taken),
		slog.Int("prices_offered", len(frag.Prices)),
		slog.Int("blocks_merged", added),
		slog.Int("blocks", len(frag.Compositions)))
}

// Fragments returns the merged fragments in merge order
func (c *ResolutionContext) Fragments() []domain.SourceFragment {
	return c.fragments
}

// Solve runs the fixpoint solver over the current graph
func (c *ResolutionContext) Solve() *Solution {
	sol := Solve(c.Graph, c.Leaves, c.maxPasses)
	c.solution = sol

	c.logger.Debug("Composition prices solved",
		slog.Int("compositions", c.Graph.Len()),
		slog.Int("solved", sol.Solved),
		slog.Int("passes", sol.Passes),
		slog.Bool("converged", sol.Converged))
	if len(sol.Unsolved) > 0 {
		c.logger.Warn("Compositions left unsolved",
			slog.Int("count", len(sol.Unsolved)),
			slog.Int("passes", sol.Passes),
			slog.Int("max_passes", c.maxPasses))
	}
	return sol
}

// Solution returns the current solver result, solving first if needed
func (c *ResolutionContext) Solution() *Solution {
	if c.solution == nil {
		return c.Solve()
	}
	return c.solution
}

// Price returns the best known unit price of code: its leaf price, else
// its solved composition price, else 0.
func (c *ResolutionContext) Price(code string) float64 {
	if p, ok := c.Leaves.Get(code); ok {
		return p
	}
	p, _ := c.Solution().Price(code)
	return p
}

// PriceSource is Price plus the library that price came from: the leaf's
// supplier, or the owner of the solved composition. The tag is empty when
// code has no price.
func (c *ResolutionContext) PriceSource(code string) (float64, domain.SourceTag) {
	if p, ok := c.Leaves.Get(code); ok {
		src, _ := c.Leaves.Source(code)
		return p, src
	}
	p, _ := c.Solution().Price(code)
	if p == 0 {
		return 0, ""
	}
	src, _ := c.Graph.Source(code)
	return p, src
}

// IsComposite reports whether code has a composition breakdown
func (c *ResolutionContext) IsComposite(code string) bool {
	return c.Graph.Has(code)
}

// MarkExpanded records that code produced composition detail
func (c *ResolutionContext) MarkExpanded(code string) {
	if code != "" {
		c.expanded.Add(code)
	}
}

// Expanded returns the codes that produced composition detail, in the
// order they were first recorded
func (c *ResolutionContext) Expanded() []string {
	return c.expanded.Codes()
}

// IsExpanded reports whether code produced composition detail
func (c *ResolutionContext) IsExpanded(code string) bool {
	return c.expanded.Contains(code)
}
