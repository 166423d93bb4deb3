package services

import (
	"sort"
	"strconv"
	"strings"

	"pricingcli/pkg/contracts/domain"
)

// GridRow is one budget line as the viewer shows it. Totals and BDI values
// are presentation only and never feed back into resolution.
type GridRow struct {
	domain.PricedItem
	Level        int        `json:"level"`
	Parent       string     `json:"parent,omitempty"`
	Total        float64    `json:"total"`
	PriceWithBDI float64    `json:"price_with_bdi"`
	TotalWithBDI float64    `json:"total_with_bdi"`
	Children     []*GridRow `json:"children,omitempty"`
}

// Grid is the budget tree ordered by numeric index
type Grid struct {
	RunID        string     `json:"run_id,omitempty"`
	Rows         []*GridRow `json:"rows"`
	Items        int        `json:"items"`
	Total        float64    `json:"total"`
	TotalWithBDI float64    `json:"total_with_bdi"`
}

// BuildGrid nests items by their dot-separated index. A row's parent is
// the longest existing index that prefixes it segment by segment. Header
// totals are the sum of the totals of every item below them.
//
// Every row is kept. Rows sharing an index become siblings, and their
// descendants attach to the first occurrence.
func BuildGrid(items []domain.PricedItem) *Grid {
	rows := make([]*GridRow, 0, len(items))
	byIndex := make(map[string]*GridRow, len(items))
	for _, it := range items {
		row := &GridRow{PricedItem: it}
		if !it.IsHeader() {
			row.Total = it.ResolvedPrice * it.Quantity
			row.PriceWithBDI = it.ResolvedPrice * (1 + it.BDIPercent)
			row.TotalWithBDI = row.Total * (1 + it.BDIPercent)
		}
		rows = append(rows, row)
		if _, dup := byIndex[it.Index]; !dup {
			byIndex[it.Index] = row
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return CompareIndex(rows[i].Index, rows[j].Index) < 0
	})

	grid := &Grid{}
	for _, row := range rows {
		parent := parentOf(row.Index, byIndex)
		if parent == nil {
			row.Level = 0
			grid.Rows = append(grid.Rows, row)
			continue
		}
		row.Parent = parent.Index
		parent.Children = append(parent.Children, row)
	}

	for _, root := range grid.Rows {
		setLevels(root, 0)
		total, withBDI, count := sumItems(root)
		grid.Total += total
		grid.TotalWithBDI += withBDI
		grid.Items += count
	}
	return grid
}

// Find returns the row with index, searching the whole tree
func (g *Grid) Find(index string) (*GridRow, bool) {
	var walk func(rows []*GridRow) *GridRow
	walk = func(rows []*GridRow) *GridRow {
		for _, r := range rows {
			if r.Index == index {
				return r
			}
			if found := walk(r.Children); found != nil {
				return found
			}
		}
		return nil
	}
	row := walk(g.Rows)
	return row, row != nil
}

func setLevels(row *GridRow, level int) {
	row.Level = level
	for _, c := range row.Children {
		setLevels(c, level+1)
	}
}

// sumItems returns the item totals of the subtree rooted at row and sets
// header totals on the way back up
func sumItems(row *GridRow) (total, withBDI float64, count int) {
	if !row.IsHeader() {
		total, withBDI, count = row.Total, row.TotalWithBDI, 1
	}
	var childTotal, childBDI float64
	for _, c := range row.Children {
		t, b, n := sumItems(c)
		childTotal += t
		childBDI += b
		count += n
	}
	if row.IsHeader() {
		row.Total = childTotal
		row.TotalWithBDI = childBDI
	}
	return total + childTotal, withBDI + childBDI, count
}

func parentOf(index string, byIndex map[string]*GridRow) *GridRow {
	for {
		cut := strings.LastIndex(index, ".")
		if cut <= 0 {
			return nil
		}
		index = index[:cut]
		if p, ok := byIndex[index]; ok {
			return p
		}
	}
}

// CompareIndex orders dot-separated indexes segment by segment, numerically
// when both segments are integers ("1.10" sorts after "1.9"). A prefix sorts
// before its extensions.
func CompareIndex(a, b string) int {
	as := strings.Split(strings.TrimSpace(a), ".")
	bs := strings.Split(strings.TrimSpace(b), ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareSegment(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}

func compareSegment(a, b string) int {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	}
	return strings.Compare(a, b)
}
