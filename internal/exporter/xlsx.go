package exporter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"pricingcli/pkg/contracts/domain"
)

// Sheet names of the exported workbook
const (
	ServicesSheet = "Servicos"
	DetailsSheet  = "Insumos"
)

// WriteWorkbook saves both tables as sheets of one xlsx file.
// Numeric columns are stored as numbers so the sheet can be summed.
func WriteWorkbook(path string, items []domain.PricedItem, details []domain.CompositionDetail) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", ServicesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(DetailsSheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", DetailsSheet, err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	itemRows := make([][]interface{}, 0, len(items))
	for _, it := range items {
		itemRows = append(itemRows, []interface{}{
			it.Index, it.SourceLibrary, it.Code, it.Description, it.Unit,
			it.Quantity, it.ManualPrice, it.BDIPercent, string(it.Kind),
			it.ResolvedPrice, string(it.Method), string(it.Status),
		})
	}
	if err := writeSheet(f, ServicesSheet, PricedItemHeaders, itemRows, bold); err != nil {
		return err
	}

	detailRows := make([][]interface{}, 0, len(details))
	for _, d := range details {
		detailRows = append(detailRows, []interface{}{
			d.ParentCode, string(d.Source), d.ChildCode, d.Description, d.Unit,
			d.Coefficient, d.UnitPrice, d.Subtotal, string(d.Composition),
		})
	}
	if err := writeSheet(f, DetailsSheet, DetailHeaders, detailRows, bold); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}, headerStyle int) error {
	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
