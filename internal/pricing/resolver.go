package pricing

import (
	"log/slog"

	"pricingcli/pkg/contracts/domain"
)

// QuotationLookup finds the market quotation mapped to a budget item
type QuotationLookup interface {
	Quotation(itemIndex string) (domain.Quotation, bool)
}

// Resolution is the outcome of pricing one requested item
type Resolution struct {
	Item domain.PricedItem
	// Manual is the synthetic detail row of a MANUAL resolution
	Manual *domain.CompositionDetail
}

// Resolver assigns price, method and status to requested items
type Resolver struct {
	ctx    *ResolutionContext
	quotes QuotationLookup
	logger *slog.Logger
}

// NewResolver creates a resolver over ctx. quotes may be nil.
func NewResolver(ctx *ResolutionContext, quotes QuotationLookup, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{ctx: ctx, quotes: quotes, logger: logger}
}

// Resolve prices one item. Tiers are tried in order and the first positive
// price wins:
//
//  1. CALCULATED: the code is a composition with a positive price; PARTIAL
//     when a direct child with a nonzero coefficient has no price
//  2. CATALOG_DIRECT: the code has a leaf price and no breakdown
//  3. QUOTATION: a market quotation is mapped to the item index
//  4. MANUAL: the budget's own price, audited by a synthetic detail row
//
// A zero price at any tier is a failure of that tier. HEADER rows are not
// resolved.
func (r *Resolver) Resolve(item domain.RequestedItem) Resolution {
	out := domain.PricedItem{RequestedItem: item}

	if item.IsHeader() {
		out.Method = domain.MethodSumChildren
		out.Status = domain.StatusHeader
		return Resolution{Item: out}
	}

	code := item.Code
	if code != "" && r.ctx.IsComposite(code) {
		if price := r.ctx.Price(code); price > 0 {
			out.ResolvedPrice = price
			out.Method = domain.MethodCalculated
			out.Status = domain.StatusOK
			if r.hasUnpricedChild(code) {
				out.Status = domain.StatusPartial
			}
			r.ctx.MarkExpanded(code)
			return Resolution{Item: out}
		}
	}

	if code != "" && !r.ctx.IsComposite(code) {
		if price, ok := r.ctx.Leaves.Get(code); ok && price > 0 {
			out.ResolvedPrice = price
			out.Method = domain.MethodCatalogDirect
			out.Status = domain.StatusNoComposition
			return Resolution{Item: out}
		}
	}

	if r.quotes != nil {
		if q, ok := r.quotes.Quotation(item.Index); ok && q.Price > 0 {
			out.ResolvedPrice = q.Price
			out.Method = domain.MethodQuotation
			out.Status = domain.StatusNoComposition
			return Resolution{Item: out}
		}
	}

	if item.ManualPrice > 0 {
		out.ResolvedPrice = item.ManualPrice
		out.Method = domain.MethodManual
		out.Status = domain.StatusNoComposition
		return Resolution{
			Item: out,
			Manual: &domain.CompositionDetail{
				ParentCode:  code,
				Source:      domain.SourceManual,
				ChildCode:   code,
				Description: item.Description,
				Unit:        item.Unit,
				Coefficient: 1,
				UnitPrice:   item.ManualPrice,
				Subtotal:    item.ManualPrice,
				Composition: domain.SourceManual,
			},
		}
	}

	out.Method = domain.MethodUnknown
	out.Status = domain.StatusError
	r.logger.Debug("Item left unpriced",
		slog.String("index", item.Index),
		slog.String("code", code),
		slog.String("source_library", item.SourceLibrary))
	return Resolution{Item: out}
}

func (r *Resolver) hasUnpricedChild(code string) bool {
	for _, child := range r.ctx.Graph.Children(code) {
		if child.Coefficient != 0 && r.ctx.Price(child.Code) == 0 {
			return true
		}
	}
	return false
}
