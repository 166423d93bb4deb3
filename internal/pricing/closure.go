package pricing

// CodeSet is an insertion-ordered set of codes
type CodeSet struct {
	index map[string]struct{}
	order []string
}

// NewCodeSet returns a set holding codes
func NewCodeSet(codes ...string) *CodeSet {
	s := &CodeSet{index: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		s.Add(c)
	}
	return s
}

// Add inserts code and reports whether it was new
func (s *CodeSet) Add(code string) bool {
	if _, ok := s.index[code]; ok {
		return false
	}
	s.index[code] = struct{}{}
	s.order = append(s.order, code)
	return true
}

// Contains reports membership
func (s *CodeSet) Contains(code string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[code]
	return ok
}

// Codes returns members in insertion order
func (s *CodeSet) Codes() []string {
	return s.order
}

// Len returns the member count
func (s *CodeSet) Len() int {
	return len(s.order)
}

// Closure returns every code reachable from roots through composition
// edges, roots included. The traversal is breadth first and each code is
// visited once, so cycles terminate.
func Closure(g *Graph, roots []string) *CodeSet {
	visited := NewCodeSet()
	queue := make([]string, 0, len(roots))
	for _, code := range roots {
		if code != "" && visited.Add(code) {
			queue = append(queue, code)
		}
	}

	for len(queue) > 0 {
		code := queue[0]
		queue = queue[1:]
		if !g.Has(code) {
			continue
		}
		for _, child := range g.Children(code) {
			if child.Code != "" && visited.Add(child.Code) {
				queue = append(queue, child.Code)
			}
		}
	}
	return visited
}
