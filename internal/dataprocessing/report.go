package dataprocessing

import (
	"log/slog"

	"pricingcli/pkg/contracts/domain"
)

// CodeSet answers membership for the codes a report scan should open
type CodeSet interface {
	Contains(code string) bool
}

// ClassifyReportRow decides what a SICRO analytic report row is.
//
// The report holds tens of thousands of compositions, so only those in
// required are opened. A header-shaped row (description present, column 3
// empty) for any other code closes the open block; a row with both the
// description and column 3 populated is a component of the open block.
func ClassifyReportRow(row []string, layout Layout, required CodeSet, current string, inComposition bool) RowClass {
	code, hasCode := Normalize(cell(row, layout.CodeCol))
	hasDesc := !isBlank(cell(row, layout.DescCol))
	hasMarker := !isBlank(cell(row, layout.MarkerCol))

	if hasCode && hasDesc && !hasMarker {
		if required != nil && required.Contains(code) {
			return RowHeader
		}
		if code != current {
			return RowReset
		}
		return RowSkip
	}
	if inComposition && hasCode && hasDesc && hasMarker {
		return RowComponent
	}
	return RowSkip
}

// ParseReport reads the SICRO report, keeping only blocks whose header code
// is in required. Unit falls back to column 3 when column 4 is empty, and so
// does the coefficient when column 2 is empty.
func ParseReport(rows [][]string, layout Layout, required CodeSet, logger *slog.Logger) domain.SourceFragment {
	if logger == nil {
		logger = slog.Default()
	}

	frag := domain.SourceFragment{
		Source: layout.Source,
		Sheet:  layout.SheetLabel(),
	}
	var cursor Cursor
	priced := make(map[string]struct{})
	components, resets := 0, 0

	for _, row := range layout.dataRows(rows) {
		frag.RowsRead++

		current, open := cursor.Current()
		code, _ := Normalize(cell(row, layout.CodeCol))
		switch ClassifyReportRow(row, layout, required, current, open) {
		case RowHeader:
			cursor.Enter(code)
			frag.Compositions = append(frag.Compositions, domain.CompositionBlock{
				Code:   code,
				Source: layout.Source,
			})
		case RowReset:
			if open {
				resets++
			}
			cursor.Reset()
		case RowComponent:
			unit := cell(row, layout.UnitCol)
			if isBlank(unit) {
				unit = cell(row, layout.MarkerCol)
			}
			coefRaw := cell(row, layout.CoefCol)
			if isBlank(coefRaw) {
				coefRaw = cell(row, layout.MarkerCol)
			}
			price := ParseFloat(cell(row, layout.PriceCol))

			block := &frag.Compositions[len(frag.Compositions)-1]
			block.Children = append(block.Children, domain.CompositionChild{
				Code:        code,
				Coefficient: ParseFloat(coefRaw),
				Description: cell(row, layout.DescCol),
				Unit:        unit,
				UnitPrice:   price,
			})
			components++
			if _, dup := priced[code]; !dup && price > 0 {
				priced[code] = struct{}{}
				frag.Prices = append(frag.Prices, domain.LeafPrice{Code: code, Price: price})
			}
		}
	}

	logger.Info("Analytic report parsed",
		slog.String("source", string(layout.Source)),
		slog.String("sheet", frag.Sheet),
		slog.Int("rows", frag.RowsRead),
		slog.Int("compositions", len(frag.Compositions)),
		slog.Int("components", components),
		slog.Int("resets", resets))

	return frag
}
