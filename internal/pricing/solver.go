package pricing

// DefaultMaxPasses bounds the fixpoint iteration
const DefaultMaxPasses = 15

// NodeState is the solver's view of one composition
type NodeState int

const (
	NodeUnsolved NodeState = iota
	NodeSolved
	NodeBlocked
)

func (s NodeState) String() string {
	switch s {
	case NodeSolved:
		return "SOLVED"
	case NodeBlocked:
		return "BLOCKED"
	default:
		return "UNSOLVED"
	}
}

// Solution holds the computed composition prices of one solver run
type Solution struct {
	prices map[string]float64
	states map[string]NodeState

	// Passes is the number of passes executed
	Passes int
	// Converged is false when the pass cap stopped a run that was still
	// making progress
	Converged bool
	// Unsolved lists compositions left without a price, in graph order
	Unsolved []string
	// Solved counts compositions priced by summation
	Solved int
}

// Price returns the computed price of a composition
func (s *Solution) Price(code string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	p, ok := s.prices[code]
	return p, ok
}

// State returns the final state of a composition. Compositions priced by a
// leaf table are reported as solved.
func (s *Solution) State(code string) NodeState {
	if s == nil {
		return NodeUnsolved
	}
	return s.states[code]
}

// Solve prices every composition as the coefficient-weighted sum of its
// children, iterating until a pass makes no progress or maxPasses is hit.
//
// A code with a leaf price is never recomputed. A child that is itself an
// unpriced composition blocks its parent for the pass; a child unknown to
// both the graph and the leaf table contributes 0. Prices solved earlier in
// a pass are visible to later nodes of the same pass. Cycles never solve
// and stay at 0.
func Solve(g *Graph, leaves *LeafPrices, maxPasses int) *Solution {
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}

	sol := &Solution{
		prices: make(map[string]float64, g.Len()),
		states: make(map[string]NodeState, g.Len()),
	}

	pending := make([]string, 0, g.Len())
	for _, code := range g.Codes() {
		if _, ok := leaves.Get(code); ok {
			sol.states[code] = NodeSolved
			continue
		}
		sol.states[code] = NodeUnsolved
		pending = append(pending, code)
	}

	known := func(code string) (float64, bool) {
		if p, ok := leaves.Get(code); ok {
			return p, true
		}
		p, ok := sol.prices[code]
		return p, ok
	}

	for len(pending) > 0 && sol.Passes < maxPasses {
		sol.Passes++
		progress := 0
		next := pending[:0]

		for _, code := range pending {
			total, blocked := 0.0, false
			for _, child := range g.Children(code) {
				if p, ok := known(child.Code); ok {
					total += p * child.Coefficient
					continue
				}
				if g.Has(child.Code) {
					blocked = true
					break
				}
			}
			if blocked {
				sol.states[code] = NodeBlocked
				next = append(next, code)
				continue
			}
			sol.prices[code] = total
			sol.states[code] = NodeSolved
			sol.Solved++
			progress++
		}

		pending = next
		if progress == 0 {
			sol.Converged = true
			break
		}
	}

	if len(pending) == 0 {
		sol.Converged = true
	}
	for _, code := range pending {
		sol.states[code] = NodeUnsolved
		sol.Unsolved = append(sol.Unsolved, code)
	}
	return sol
}
