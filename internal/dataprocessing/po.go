package dataprocessing

import (
	"log/slog"
	"strings"

	"pricingcli/pkg/contracts/domain"
)

// ParsePO reads the requested-items budget sheet. Rows without an index,
// and the repeated "ITEM" column caption, are skipped. A row without a
// source library is a HEADER; when such a row has its title in the code
// column and an empty description, the title is moved to the description.
// Quantities are never negative; a negative cell reads as 0.
func ParsePO(rows [][]string, layout Layout, logger *slog.Logger) []domain.RequestedItem {
	if logger == nil {
		logger = slog.Default()
	}

	var items []domain.RequestedItem
	headers := 0

	for _, row := range layout.dataRows(rows) {
		index := cell(row, layout.IndexCol)
		if isBlank(index) || strings.EqualFold(index, "ITEM") {
			continue
		}

		item := domain.RequestedItem{
			Index:       index,
			Description: cell(row, layout.DescCol),
			Unit:        cell(row, layout.UnitCol),
			Quantity:    ParseFloat(cell(row, layout.QuantityCol)),
			ManualPrice: ParseFloat(cell(row, layout.PriceCol)),
			BDIPercent:  ParseFloat(cell(row, layout.BDICol)),
			Kind:        domain.ItemKindItem,
		}
		if item.Quantity < 0 {
			logger.Debug("Negative quantity clamped to zero",
				slog.String("index", index),
				slog.Float64("quantity", item.Quantity))
			item.Quantity = 0
		}
		item.SourceLibrary, _ = Normalize(cell(row, layout.SourceCol))
		item.Code, _ = Normalize(cell(row, layout.CodeCol))

		if item.SourceLibrary == "" {
			item.Kind = domain.ItemKindHeader
			headers++
			if item.Code != "" && isBlank(item.Description) {
				item.Description = cell(row, layout.CodeCol)
				item.Code = ""
			}
		}
		if isBlank(item.Description) {
			item.Description = ""
		}

		items = append(items, item)
	}

	logger.Info("Budget sheet parsed",
		slog.String("sheet", layout.SheetLabel()),
		slog.Int("items", len(items)-headers),
		slog.Int("headers", headers))

	return items
}
