package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-batch/constants"
	"github.com/joseph-ayodele/invoice-batch/internal/common"
	"github.com/joseph-ayodele/invoice-batch/internal/entity"
	"github.com/joseph-ayodele/invoice-batch/internal/export"
)

func rows(n int) []entity.ItemRow {
	out := make([]entity.ItemRow, n)
	for i := range out {
		out[i] = entity.ItemRow{Description: "Bausand", Quantity: "1", TotalPrice: "2"}
	}
	return out
}

func TestAccumulatorFlush(t *testing.T) {
	dir := t.TempDir()
	acc := NewAccumulator(dir, "RUN1", export.NewWorkbook(discardLogger()), discardLogger())

	path, err := acc.Flush(t.Context())
	require.NoError(t, err)
	assert.Empty(t, path, "empty flush is a no-op")

	acc.Append(rows(3))
	path, err = acc.Flush(t.Context())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, constants.BatchFilePrefix+"RUN1_001.xlsx"), path)
	assert.Equal(t, 0, acc.Len())

	acc.Append(rows(1))
	path, err = acc.Flush(t.Context())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, constants.BatchFilePrefix+"RUN1_002.xlsx"), path)
}

func TestAccumulatorFailedFlushKeepsRows(t *testing.T) {
	dir := t.TempDir()
	acc := NewAccumulator(dir, "RUN1", failingWriter{err: errDisk}, discardLogger())
	acc.Append(rows(2))

	_, err := acc.Flush(t.Context())
	require.ErrorIs(t, err, common.ErrStorage)
	assert.Equal(t, 2, acc.Len())

	// the index is only consumed by a successful write
	acc.writer = export.NewWorkbook(discardLogger())
	path, err := acc.Flush(t.Context())
	require.NoError(t, err)
	assert.Equal(t, constants.BatchFilePrefix+"RUN1_001.xlsx", filepath.Base(path))
	assert.Equal(t, 0, acc.Len())
}

func TestAccumulatorBackup(t *testing.T) {
	dir := t.TempDir()
	acc := NewAccumulator(dir, "RUN1", export.NewWorkbook(discardLogger()), discardLogger())
	acc.Append(rows(2))

	path, err := acc.Backup(t.Context())
	require.NoError(t, err)
	assert.Equal(t, constants.CrashBackupPrefix+"RUN1.xlsx", filepath.Base(path))
	matched, _ := filepath.Match(constants.BatchFileGlob, filepath.Base(path))
	assert.False(t, matched)
	_, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, 0, acc.Len())

	acc.Append(rows(1))
	acc.Clear()
	assert.Equal(t, 0, acc.Len())
}
