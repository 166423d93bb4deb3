package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Cells holds sheet values keyed by 1-based row then 0-based column
type Cells map[int]map[int]interface{}

// WriteWorkbook saves sheets to path in the given order
func WriteWorkbook(t *testing.T, path string, order []string, sheets map[string]Cells) {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

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

// Fixture file names written by WriteBudgetFixtures
const (
	BudgetFile = "PO.xlsx"
	SINAPIFile = "SINAPI_Referência_2024_08.xlsx"
)

// WriteBudgetFixtures creates a budget and a SINAPI workbook under dir.
//
// Budget: header 1, then 1.1 SINAPI 100 (qty 10, BDI 25%), 1.2 SINAPI A
// (qty 2), 1.3 with a manual price of 50 and 1.4 with no price anywhere.
// Composition 100 = 2 x A(3) + 0.5 x B(4) = 8.
func WriteBudgetFixtures(t *testing.T, dir string) {
	t.Helper()

	WriteWorkbook(t, filepath.Join(dir, BudgetFile), []string{"PO"}, map[string]Cells{
		"PO": {
			1:  {0: "ORÇAMENTO"},
			13: {0: "1", 2: "SERVIÇOS PRELIMINARES"},
			14: {0: "1.1", 1: "SINAPI", 2: 100, 3: "Alvenaria", 4: "m2", 5: 10, 12: 0.25},
			15: {0: "1.2", 1: "SINAPI", 2: "A", 3: "Cimento", 4: "kg", 5: 2},
			16: {0: "1.3", 1: "PROPRIO", 2: "ZZZ", 3: "Placa de obra", 4: "un", 5: 1, 8: 50},
			17: {0: "1.4", 1: "PROPRIO", 2: "QQQ", 3: "Sem preço", 4: "un", 5: 1},
		},
	})

	WriteWorkbook(t, filepath.Join(dir, SINAPIFile), []string{"ISD", "Analítico"}, map[string]Cells{
		"ISD": {
			1:  {0: "SINAPI"},
			11: {1: "A", 30: 3},
			12: {1: "B", 30: 4},
		},
		"Analítico": {
			1: {0: "SINAPI"},
			6: {1: 100, 4: "Alvenaria"},
			7: {1: 100, 2: "INSUMO", 3: "A", 4: "Cimento", 5: "kg", 6: 2},
			8: {1: 100, 2: "INSUMO", 3: "B", 4: "Areia", 5: "m3", 6: 0.5},
		},
	})
}
