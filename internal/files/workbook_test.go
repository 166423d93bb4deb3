package files

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pricingcli/internal/dataprocessing"
)

// writeWorkbook saves a workbook whose sheets hold the given cell values,
// keyed by 1-based row then 0-based column.
func writeWorkbook(t *testing.T, path string, sheets map[string]map[int]map[int]interface{}, order []string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName(f.GetSheetName(0), name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for rowNum, cols := range sheets[name] {
			for colIdx, val := range cols {
				cell, err := excelize.CoordinatesToCellName(colIdx+1, rowNum)
				require.NoError(t, err)
				require.NoError(t, f.SetCellValue(name, cell, val))
			}
		}
	}
	require.NoError(t, f.SaveAs(path))
}

func TestWorkbookRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SINAPI.xlsx")
	writeWorkbook(t, path, map[string]map[int]map[int]interface{}{
		"ISD": {
			1:  {0: "caption"},
			11: {1: 88316, 30: 25.1},
		},
		"Analítico": {
			6: {1: "A", 4: "COMPOSITION"},
		},
	}, []string{"ISD", "Analítico"})

	wb, err := OpenWorkbook(path)
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.Rows(dataprocessing.ISDLayout())
	require.NoError(t, err)
	require.Len(t, rows, 11, "blank rows between data keep their position")
	assert.Equal(t, "88316", rows[10][1])
	assert.Equal(t, "25.1", rows[10][30])

	frag := dataprocessing.ParsePriceSheet(rows, dataprocessing.ISDLayout(), nil)
	require.Len(t, frag.Prices, 1)
	assert.Equal(t, 25.1, frag.Prices[0].Price)

	name, err := wb.SheetName(dataprocessing.Layout{Sheet: "analítico"})
	require.NoError(t, err)
	assert.Equal(t, "Analítico", name)

	name, err = wb.SheetName(dataprocessing.Layout{SheetIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, "Analítico", name)
}

func TestWorkbookMissingSources(t *testing.T) {
	_, err := OpenWorkbook(filepath.Join(t.TempDir(), "absent.xlsx"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceMissing))

	path := filepath.Join(t.TempDir(), "PO.xlsx")
	writeWorkbook(t, path, map[string]map[int]map[int]interface{}{
		"Other": {1: {0: "x"}},
	}, []string{"Other"})

	_, err = ReadSheet(path, dataprocessing.POLayout())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceMissing))

	_, err = ReadSheet(path, dataprocessing.Layout{SheetIndex: 3})
	assert.True(t, errors.Is(err, ErrSourceMissing))
}
