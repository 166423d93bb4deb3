package dataprocessing

import (
	"log/slog"

	"pricingcli/pkg/contracts/domain"
)

// ParsePriceSheet reads a code/price table (SINAPI ISD or CSD). Rows
// without a code, or without any positive number, are skipped. Within a
// sheet the first row for a code wins.
func ParsePriceSheet(rows [][]string, layout Layout, logger *slog.Logger) domain.SourceFragment {
	if logger == nil {
		logger = slog.Default()
	}

	frag := domain.SourceFragment{
		Source: layout.Source,
		Sheet:  layout.SheetLabel(),
	}
	seen := make(map[string]struct{})
	fallbackHits := 0

	for _, row := range layout.dataRows(rows) {
		frag.RowsRead++

		code, ok := Normalize(cell(row, layout.CodeCol))
		if !ok {
			continue
		}
		price, fromFallback, ok := PositionalPrice(row, layout.PriceCol, layout.FallbackFrom)
		if !ok {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		if fromFallback {
			fallbackHits++
		}
		frag.Prices = append(frag.Prices, domain.LeafPrice{Code: code, Price: price})
	}

	logger.Info("Price sheet parsed",
		slog.String("source", string(layout.Source)),
		slog.String("sheet", frag.Sheet),
		slog.Int("rows", frag.RowsRead),
		slog.Int("prices", len(frag.Prices)),
		slog.Int("fallback_hits", fallbackHits))

	return frag
}

// PositionalPrice reads the canonical price column and, when it is empty or
// not positive, scans the row from fallbackFrom for the first positive
// number, skipping the canonical column. fallbackFrom < 0 disables the scan.
// Rows arrive as formatted text, so the scan cannot tell a numeric cell from
// a text cell that reads as a number; both are taken.
func PositionalPrice(row []string, priceCol, fallbackFrom int) (price float64, fromFallback bool, ok bool) {
	if v, parsed := ParseLenient(cell(row, priceCol)); parsed && v > 0 {
		return v, false, true
	}
	if fallbackFrom < 0 {
		return 0, false, false
	}
	for idx := fallbackFrom; idx < len(row); idx++ {
		if idx == priceCol {
			continue
		}
		if v, parsed := ParseLenient(cell(row, idx)); parsed && v > 0 {
			return v, true, true
		}
	}
	return 0, false, false
}
