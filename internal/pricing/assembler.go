package pricing

import (
	"log/slog"

	"pricingcli/pkg/contracts/domain"
)

// Summary counts the outcome of an assembly
type Summary struct {
	Items        int                   `json:"items"`
	Headers      int                   `json:"headers"`
	Details      int                   `json:"details"`
	ClosureSize  int                   `json:"closure_size"`
	Expanded     int                   `json:"expanded"`
	Unsolved     int                   `json:"unsolved"`
	SolverPasses int                   `json:"solver_passes"`
	ByStatus     map[domain.Status]int `json:"by_status"`
	ByMethod     map[domain.Method]int `json:"by_method"`
}

// Assembly is the complete output of a pricing run
type Assembly struct {
	Items   []domain.PricedItem
	Details []domain.CompositionDetail
	Closure *CodeSet
	Summary Summary
}

// RequestedCodes returns the distinct codes of priceable items in input order
func RequestedCodes(items []domain.RequestedItem) []string {
	set := NewCodeSet()
	for _, item := range items {
		if item.IsHeader() || item.Code == "" {
			continue
		}
		set.Add(item.Code)
	}
	return set.Codes()
}

// Assemble resolves every requested item and builds both output tables.
//
// Priced items keep input order, headers included. Detail rows are emitted
// for every block of every merged fragment whose parent is in the closure of
// the requested codes, in merge order and without deduplication; market
// quotation rows follow in item order, then the synthetic manual rows.
//
// A detail line is tagged with the library its child price came from. A
// child no library priced falls back to the price printed on the line, if
// any, tagged with the listing library.
func Assemble(ctx *ResolutionContext, items []domain.RequestedItem, quotes QuotationLookup, logger *slog.Logger) *Assembly {
	if logger == nil {
		logger = slog.Default()
	}

	sol := ctx.Solution()
	closure := Closure(ctx.Graph, RequestedCodes(items))

	var details []domain.CompositionDetail
	for _, frag := range ctx.Fragments() {
		for _, block := range frag.Compositions {
			if !closure.Contains(block.Code) {
				continue
			}
			for _, child := range block.Children {
				unit, source := ctx.PriceSource(child.Code)
				if unit == 0 && child.UnitPrice > 0 {
					unit, source = child.UnitPrice, block.Source
				}
				if source == "" {
					source = block.Source
				}
				details = append(details, domain.CompositionDetail{
					ParentCode:  block.Code,
					Source:      source,
					ChildCode:   child.Code,
					Description: child.Description,
					Unit:        child.Unit,
					Coefficient: child.Coefficient,
					UnitPrice:   unit,
					Subtotal:    unit * child.Coefficient,
					Composition: block.Source,
				})
				ctx.MarkExpanded(block.Code)
			}
		}
	}

	if quotes != nil {
		for _, item := range items {
			if item.IsHeader() {
				continue
			}
			q, ok := quotes.Quotation(item.Index)
			if !ok {
				continue
			}
			details = append(details, domain.CompositionDetail{
				ParentCode:  item.Code,
				Source:      domain.SourceMarket,
				ChildCode:   q.Code,
				Description: q.Description,
				Unit:        "UN",
				Coefficient: 1,
				UnitPrice:   q.Price,
				Subtotal:    q.Price,
				Composition: domain.SourceMarket,
			})
			ctx.MarkExpanded(item.Code)
		}
	}

	resolver := NewResolver(ctx, quotes, logger)
	priced := make([]domain.PricedItem, 0, len(items))
	summary := Summary{
		ByStatus: make(map[domain.Status]int),
		ByMethod: make(map[domain.Method]int),
	}
	for _, item := range items {
		res := resolver.Resolve(item)
		priced = append(priced, res.Item)
		if res.Manual != nil {
			details = append(details, *res.Manual)
		}
		if item.IsHeader() {
			summary.Headers++
		} else {
			summary.Items++
		}
		summary.ByStatus[res.Item.Status]++
		summary.ByMethod[res.Item.Method]++
	}

	summary.Details = len(details)
	summary.ClosureSize = closure.Len()
	summary.Expanded = len(ctx.Expanded())
	summary.Unsolved = len(sol.Unsolved)
	summary.SolverPasses = sol.Passes

	logger.Info("Budget assembled",
		slog.Int("items", summary.Items),
		slog.Int("headers", summary.Headers),
		slog.Int("details", summary.Details),
		slog.Int("closure", summary.ClosureSize),
		slog.Int("errors", summary.ByStatus[domain.StatusError]),
		slog.Int("partial", summary.ByStatus[domain.StatusPartial]))

	return &Assembly{
		Items:   priced,
		Details: details,
		Closure: closure,
		Summary: summary,
	}
}
