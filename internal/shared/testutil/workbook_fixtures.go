package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// GradesSheet is the tab name the parser expects by default.
const GradesSheet = "Pasiekimų ir lankomumo"

// GradesHeader is a registry header with three subjects, three aggregate
// columns and three attendance counters.
var GradesHeader = []interface{}{
	"Eil. Nr.", "Mokinys", "Matematika", "Fizika", "Lietuvių kalba",
	"Pusmečio vidurkis", "Socialinė veikla", "Metinis",
	"Praleistos pamokos", "Pateisintos dėl ligos", "Nepateisinta",
}

// GradesRows are two students plus a summary row the parser must drop.
var GradesRows = [][]interface{}{
	{1, "Jonas Jonaitis", 8, "9 (įsk.)", 6, 8.5, 10, 9, 12, 10, 2},
	{2, "Ona Onaitė", "10", "", 7, 9, "", "", 3, "", ""},
	{"", "Klasės vidurkis", 9, 9, 7},
}

// Workbook describes a fixture workbook. Zero fields take the defaults above.
type Workbook struct {
	Sheet  string
	Header []interface{}
	Rows   [][]interface{}
}

// GradesWorkbook returns the default fixture as xlsx bytes.
func GradesWorkbook(t testing.TB) []byte {
	t.Helper()
	return Workbook{}.Bytes(t)
}

// Bytes builds the workbook in the registry layout: three metadata rows,
// the header row and the data rows below it.
func (w Workbook) Bytes(t testing.TB) []byte {
	t.Helper()

	sheet := w.Sheet
	if sheet == "" {
		sheet = GradesSheet
	}
	header := w.Header
	if header == nil {
		header = GradesHeader
	}
	rows := w.Rows
	if rows == nil {
		rows = GradesRows
	}

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheet))

	require.NoError(t, f.SetCellValue(sheet, "A1", "Klasė: 8a"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "Laikotarpis: 2024-2025"))
	require.NoError(t, f.SetCellValue(sheet, "A3", "Pasiekimų ir lankomumo ataskaita"))

	require.NoError(t, f.SetSheetRow(sheet, "A4", &header))
	for i, row := range rows {
		row := row
		cellName, err := excelize.CoordinatesToCellName(1, 5+i)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellName, &row))
	}

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

// File writes the workbook into a fresh temp dir and returns its path.
func (w Workbook) File(t testing.TB, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, w.Bytes(t), 0o644))
	return path
}
