package dataprocessing

import (
	"log/slog"

	"pricingcli/pkg/contracts/domain"
)

// ClassifyRegionalRow decides what a CDHU "Composição" row is. The code
// column is shared by headers and components; the header leaves the
// coefficient column empty.
func ClassifyRegionalRow(row []string, layout Layout, inComposition bool) RowClass {
	if _, ok := Normalize(cell(row, layout.CodeCol)); !ok {
		return RowSkip
	}
	if cell(row, layout.MarkerCol) == "" {
		return RowHeader
	}
	if !inComposition {
		return RowSkip
	}
	return RowComponent
}

// ParseRegional reads the CDHU composition sheet. Component rows print
// their own unit price, which is also offered as a leaf price for the
// component code.
func ParseRegional(rows [][]string, layout Layout, logger *slog.Logger) domain.SourceFragment {
	if logger == nil {
		logger = slog.Default()
	}

	frag := domain.SourceFragment{
		Source: layout.Source,
		Sheet:  layout.SheetLabel(),
	}
	var cursor Cursor
	priced := make(map[string]struct{})
	components := 0

	for _, row := range layout.dataRows(rows) {
		frag.RowsRead++

		_, open := cursor.Current()
		code, _ := Normalize(cell(row, layout.CodeCol))
		switch ClassifyRegionalRow(row, layout, open) {
		case RowHeader:
			cursor.Enter(code)
			frag.Compositions = append(frag.Compositions, domain.CompositionBlock{
				Code:   code,
				Source: layout.Source,
			})
		case RowComponent:
			price := ParseFloat(cell(row, layout.PriceCol))
			block := &frag.Compositions[len(frag.Compositions)-1]
			block.Children = append(block.Children, domain.CompositionChild{
				Code:        code,
				Coefficient: ParseFloat(cell(row, layout.CoefCol)),
				Description: cell(row, layout.DescCol),
				Unit:        cell(row, layout.UnitCol),
				UnitPrice:   price,
			})
			components++
			if _, dup := priced[code]; !dup && price > 0 {
				priced[code] = struct{}{}
				frag.Prices = append(frag.Prices, domain.LeafPrice{Code: code, Price: price})
			}
		}
	}

	logger.Info("Regional sheet parsed",
		slog.String("source", string(layout.Source)),
		slog.String("sheet", frag.Sheet),
		slog.Int("rows", frag.RowsRead),
		slog.Int("compositions", len(frag.Compositions)),
		slog.Int("components", components),
		slog.Int("prices", len(frag.Prices)))

	return frag
}
