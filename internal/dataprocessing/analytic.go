package dataprocessing

import (
	"log/slog"

	"pricingcli/pkg/contracts/domain"
)

// ClassifyAnalyticRow decides what a SINAPI "Analítico" row is. Every
// meaningful row carries the parent code; a blank type column marks the
// composition header, a populated one a component of the open block.
func ClassifyAnalyticRow(row []string, layout Layout, inComposition bool) RowClass {
	if _, ok := Normalize(cell(row, layout.CodeCol)); !ok {
		return RowSkip
	}
	if isBlank(cell(row, layout.TypeCol)) {
		return RowHeader
	}
	if !inComposition {
		return RowSkip
	}
	if _, ok := Normalize(cell(row, layout.ChildCodeCol)); !ok {
		return RowSkip
	}
	return RowComponent
}

// ParseAnalytic reads the SINAPI composition breakdown into composition
// blocks. A parent whose header appears more than once yields one block per
// appearance; the graph merges them.
func ParseAnalytic(rows [][]string, layout Layout, logger *slog.Logger) domain.SourceFragment {
	if logger == nil {
		logger = slog.Default()
	}

	frag := domain.SourceFragment{
		Source: layout.Source,
		Sheet:  layout.SheetLabel(),
	}
	var cursor Cursor
	components := 0

	for _, row := range layout.dataRows(rows) {
		frag.RowsRead++

		_, open := cursor.Current()
		switch ClassifyAnalyticRow(row, layout, open) {
		case RowHeader:
			code, _ := Normalize(cell(row, layout.CodeCol))
			cursor.Enter(code)
			frag.Compositions = append(frag.Compositions, domain.CompositionBlock{
				Code:   code,
				Source: layout.Source,
			})
		case RowComponent:
			child, _ := Normalize(cell(row, layout.ChildCodeCol))
			block := &frag.Compositions[len(frag.Compositions)-1]
			block.Children = append(block.Children, domain.CompositionChild{
				Code:        child,
				Coefficient: ParseFloat(cell(row, layout.CoefCol)),
				Description: cell(row, layout.DescCol),
				Unit:        cell(row, layout.UnitCol),
			})
			components++
		}
	}

	logger.Info("Analytic sheet parsed",
		slog.String("source", string(layout.Source)),
		slog.String("sheet", frag.Sheet),
		slog.Int("rows", frag.RowsRead),
		slog.Int("compositions", len(frag.Compositions)),
		slog.Int("components", components))

	return frag
}
