package files

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"pricingcli/internal/dataprocessing"
)

// ErrSourceMissing is returned when a source workbook or sheet is absent.
// Callers skip that source and continue with the rest.
var ErrSourceMissing = errors.New("source not found")

// Workbook is an open spreadsheet read as raw cell text
type Workbook struct {
	path string
	file *excelize.File
}

// OpenWorkbook opens an xlsx file for reading
func OpenWorkbook(path string) (*Workbook, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("workbook %s: %w", path, ErrSourceMissing)
		}
		return nil, fmt.Errorf("failed to stat workbook %s: %w", path, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	return &Workbook{path: path, file: f}, nil
}

// Path returns the file the workbook was opened from
func (w *Workbook) Path() string {
	return w.path
}

// Close releases the underlying file
func (w *Workbook) Close() error {
	return w.file.Close()
}

// SheetName resolves the sheet a layout reads. Names are matched exactly
// first and then case-insensitively; an empty name selects by index.
func (w *Workbook) SheetName(layout dataprocessing.Layout) (string, error) {
	sheets := w.file.GetSheetList()
	if layout.Sheet == "" {
		if layout.SheetIndex < 0 || layout.SheetIndex >= len(sheets) {
			return "", fmt.Errorf("sheet #%d in %s: %w", layout.SheetIndex, w.path, ErrSourceMissing)
		}
		return sheets[layout.SheetIndex], nil
	}
	for _, name := range sheets {
		if name == layout.Sheet {
			return name, nil
		}
	}
	for _, name := range sheets {
		if strings.EqualFold(strings.TrimSpace(name), layout.Sheet) {
			return name, nil
		}
	}
	return "", fmt.Errorf("sheet %q in %s: %w", layout.Sheet, w.path, ErrSourceMissing)
}

// Rows streams the layout's sheet into memory. Cells are raw values, so
// numbers keep full precision instead of the sheet's display format.
func (w *Workbook) Rows(layout dataprocessing.Layout) ([][]string, error) {
	sheet, err := w.SheetName(layout)
	if err != nil {
		return nil, err
	}

	iter, err := w.file.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	defer func() { _ = iter.Close() }()

	var rows [][]string
	for iter.Next() {
		cols, err := iter.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d of %s: %w", len(rows)+1, sheet, err)
		}
		rows = append(rows, cols)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate sheet %s: %w", sheet, err)
	}

	slog.Debug("Sheet loaded",
		slog.String("path", w.path),
		slog.String("sheet", sheet),
		slog.Int("rows", len(rows)))

	return rows, nil
}

// ReadSheet opens path, reads one layout and closes the file
func ReadSheet(path string, layout dataprocessing.Layout) ([][]string, error) {
	wb, err := OpenWorkbook(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = wb.Close() }()
	return wb.Rows(layout)
}
