package dataprocessing

import (
	"strconv"

	"pricingcli/pkg/contracts/domain"
)

// NoColumn marks a column a layout does not use
const NoColumn = -1

// Layout is the positional description of one source sheet. Columns are
// zero-based; the row grammar of each parser reads only the columns it
// needs and NoColumn disables the rest.
type Layout struct {
	Source     domain.SourceTag
	Sheet      string // sheet name; empty selects SheetIndex
	SheetIndex int
	SkipRows   int

	IndexCol     int
	SourceCol    int
	CodeCol      int
	TypeCol      int
	ChildCodeCol int
	DescCol      int
	UnitCol      int
	CoefCol      int
	MarkerCol    int
	QuantityCol  int
	PriceCol     int
	BDICol       int

	// FallbackFrom is the first column scanned for a positive number when
	// PriceCol is empty or non-positive.
	FallbackFrom int
}

func baseLayout() Layout {
	return Layout{
		IndexCol:     NoColumn,
		SourceCol:    NoColumn,
		CodeCol:      NoColumn,
		TypeCol:      NoColumn,
		ChildCodeCol: NoColumn,
		DescCol:      NoColumn,
		UnitCol:      NoColumn,
		CoefCol:      NoColumn,
		MarkerCol:    NoColumn,
		QuantityCol:  NoColumn,
		PriceCol:     NoColumn,
		BDICol:       NoColumn,
		FallbackFrom: NoColumn,
	}
}

// ISDLayout is the SINAPI price sheet without payroll charges
func ISDLayout() Layout {
	l := baseLayout()
	l.Source = domain.SourceSINAPI
	l.Sheet = "ISD"
	l.SkipRows = 10
	l.CodeCol = 1
	l.PriceCol = 30
	l.FallbackFrom = 4
	return l
}

// CSDLayout is the SINAPI price sheet with payroll charges
func CSDLayout() Layout {
	l := ISDLayout()
	l.Sheet = "CSD"
	l.PriceCol = 54
	return l
}

// AnalyticLayout is the SINAPI composition breakdown sheet
func AnalyticLayout() Layout {
	l := baseLayout()
	l.Source = domain.SourceSINAPI
	l.Sheet = "Analítico"
	l.SkipRows = 5
	l.CodeCol = 1
	l.TypeCol = 2
	l.ChildCodeCol = 3
	l.DescCol = 4
	l.UnitCol = 5
	l.CoefCol = 6
	return l
}

// RegionalLayout is the CDHU composition sheet. A blank coefficient
// column marks a composition header.
func RegionalLayout() Layout {
	l := baseLayout()
	l.Source = domain.SourceCDHU
	l.Sheet = "Composição"
	l.CodeCol = 0
	l.DescCol = 1
	l.UnitCol = 2
	l.CoefCol = 3
	l.MarkerCol = 3
	l.PriceCol = 4
	return l
}

// ReportLayout is the SICRO analytic report, read from the first sheet
func ReportLayout() Layout {
	l := baseLayout()
	l.Source = domain.SourceSICRO
	l.SheetIndex = 0
	l.CodeCol = 0
	l.DescCol = 1
	l.CoefCol = 2
	l.MarkerCol = 3
	l.UnitCol = 4
	l.PriceCol = 5
	return l
}

// POLayout is the requested-items budget sheet
func POLayout() Layout {
	l := baseLayout()
	l.Sheet = "PO"
	l.SkipRows = 12
	l.IndexCol = 0
	l.SourceCol = 1
	l.CodeCol = 2
	l.DescCol = 3
	l.UnitCol = 4
	l.QuantityCol = 5
	l.PriceCol = 8
	l.BDICol = 12
	return l
}

// dataRows drops the layout's leading rows
func (l Layout) dataRows(rows [][]string) [][]string {
	if l.SkipRows <= 0 {
		return rows
	}
	if l.SkipRows >= len(rows) {
		return nil
	}
	return rows[l.SkipRows:]
}

// SheetLabel names the sheet for logs
func (l Layout) SheetLabel() string {
	if l.Sheet != "" {
		return l.Sheet
	}
	return "#" + strconv.Itoa(l.SheetIndex)
}
