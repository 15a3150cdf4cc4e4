package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkbook_WriteRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.xlsx")
	wb := NewWorkbook(nil)

	err := wb.Write(path, "", []string{"Artikelbezeichnung", "Menge", "Einheit"}, [][]any{
		{"Bausand 0-2", 12.5, "t"},
		{"", "", ""},
		{"Schotter", "3", ""},
	})
	require.NoError(t, err)

	tbl, err := wb.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Artikelbezeichnung", "Menge", "Einheit"}, tbl.Columns)
	require.Len(t, tbl.Records, 2, "blank rows are skipped")
	assert.Equal(t, "Bausand 0-2", tbl.Records[0]["Artikelbezeichnung"])
	assert.Equal(t, "12.5", tbl.Records[0]["Menge"])
	assert.Equal(t, "", tbl.Records[1]["Einheit"], "missing trailing cells are padded")
}

func TestWorkbook_WriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.xlsx")
	wb := NewWorkbook(nil)

	require.NoError(t, wb.Write(path, "Log", []string{"A"}, [][]any{{"x"}}))
	require.NoError(t, wb.Write(path, "Log", []string{"A"}, [][]any{{"y"}}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.xlsx", entries[0].Name())

	tbl, err := wb.Read(path)
	require.NoError(t, err)
	require.Len(t, tbl.Records, 1)
	assert.Equal(t, "y", tbl.Records[0]["A"])
}

func TestWorkbook_ReadErrors(t *testing.T) {
	dir := t.TempDir()
	wb := NewWorkbook(nil)

	_, err := wb.Read(filepath.Join(dir, "missing.xlsx"))
	assert.Error(t, err)

	corrupt := filepath.Join(dir, "corrupt.xlsx")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a zip"), 0o644))
	_, err = wb.Read(corrupt)
	assert.Error(t, err)
}
