package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMemoryTable(t *testing.T) {
	tbl := NewMemoryTable([]string{" Id ", "Name"}, [][]string{{"1", "a"}, {"2"}, {"3", "c", "extra"}})

	assert.Equal(t, []string{"Id", "Name"}, tbl.Columns())
	assert.Equal(t, 3, tbl.TotalRows())

	rows, err := tbl.ReadRows(1, 5)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"2", ""}, {"3", "c"}}, rows)

	rows, err = tbl.ReadRows(3, 5)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = tbl.ReadRows(-1, 1)
	assert.Error(t, err)
}

func TestCSVTable_BOMAndSemicolon(t *testing.T) {
	path := writeFile(t, "products.csv", "\xEF\xBB\xBFSku;Name;Price\nA1;Lamp;1,5\n\nA2;\"Desk; large\"\n")

	tbl, err := OpenCSV(path, CSVOptions{})
	require.NoError(t, err)
	defer tbl.Close()

	assert.Equal(t, []string{"Sku", "Name", "Price"}, tbl.Columns())
	assert.Equal(t, 2, tbl.TotalRows())

	rows, err := tbl.ReadRows(0, 10)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A1", "Lamp", "1,5"}, {"A2", "Desk; large", ""}}, rows)
}

func TestCSVTable_SeeksAcrossCheckpoints(t *testing.T) {
	var b strings.Builder
	b.WriteString("Sku,Name\n")
	for i := 0; i < 600; i++ {
		fmt.Fprintf(&b, "SKU-%d,\"Product\n%d\"\n", i, i)
	}
	tbl, err := OpenCSV(writeFile(t, "big.csv", b.String()), CSVOptions{Comma: ','})
	require.NoError(t, err)
	defer tbl.Close()

	require.Equal(t, 600, tbl.TotalRows())
	assert.Len(t, tbl.checkpoints, 3)

	rows, err := tbl.ReadRows(510, 4)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "SKU-510", rows[0][0])
	assert.Equal(t, "Product\n513", rows[3][1])

	rows, err = tbl.ReadRows(255, 2)
	require.NoError(t, err)
	assert.Equal(t, "SKU-255", rows[0][0])
	assert.Equal(t, "SKU-256", rows[1][0])

	rows, err = tbl.ReadRows(598, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestCSVTable_MissingHeader(t *testing.T) {
	_, err := OpenCSV(writeFile(t, "empty.csv", ""), CSVOptions{})
	assert.ErrorContains(t, err, "missing header")
}

func TestXLSXTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Sku", "Name", "Price"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"A1", "Lamp", 19.99}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"A2", "Desk"}))
	require.NoError(t, f.SetSheetRow(sheet, "A5", &[]any{"A3", "Chair", 5}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	tbl, err := OpenXLSX(path, "")
	require.NoError(t, err)
	defer tbl.Close()

	assert.Equal(t, []string{"Sku", "Name", "Price"}, tbl.Columns())
	assert.Equal(t, 3, tbl.TotalRows())

	rows, err := tbl.ReadRows(1, 5)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A2", "Desk", ""}, {"A3", "Chair", "5"}}, rows)

	rows, err = tbl.ReadRows(0, 1)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A1", "Lamp", "19.99"}}, rows)
}

func TestOpen(t *testing.T) {
	tbl, err := Open(writeFile(t, "p.CSV", "Sku\nA1\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.TotalRows())
	require.NoError(t, tbl.Close())

	_, err = Open(writeFile(t, "p.json", "{}"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
