package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/joseph-ayodele/invoice-batch/constants"
	"github.com/joseph-ayodele/invoice-batch/internal/common"
	"github.com/joseph-ayodele/invoice-batch/internal/entity"
	"github.com/joseph-ayodele/invoice-batch/internal/export"
)

// TableWriter writes one sheet to a spreadsheet file.
type TableWriter interface {
	Write(path, sheet string, columns []string, rows [][]any) error
}

// Accumulator buffers committed rows and writes them to batch artifacts. A flush
// either writes and clears every buffered row or keeps all of them.
type Accumulator struct {
	dir    string
	runID  string
	writer TableWriter
	logger *slog.Logger

	mu    sync.Mutex
	rows  []entity.ItemRow
	index int
}

func NewAccumulator(dir, runID string, writer TableWriter, logger *slog.Logger) *Accumulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Accumulator{dir: dir, runID: runID, writer: writer, logger: logger, index: 1}
}

func (a *Accumulator) Append(rows []entity.ItemRow) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows = append(a.rows, rows...)
}

func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.rows)
}

// Clear drops buffered rows without writing them.
func (a *Accumulator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows = nil
}

// Flush writes buffered rows to artikelpositionen_ki_batch_<run>_<NNN>.xlsx. It is a
// no-op returning an empty path when nothing is buffered.
func (a *Accumulator) Flush(_ context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.rows) == 0 {
		return "", nil
	}
	name := fmt.Sprintf("%s%s_%03d%s", constants.BatchFilePrefix, a.runID, a.index, constants.SpreadsheetExt)
	path := filepath.Join(a.dir, name)
	if err := a.writeLocked(path); err != nil {
		return "", err
	}
	a.logger.Info("pipeline.batch.flushed", "path", path, "rows", len(a.rows), "index", a.index)
	a.index++
	a.rows = nil
	return path, nil
}

// Backup writes buffered rows to the crash backup artifact, which the enricher does
// not pick up.
func (a *Accumulator) Backup(_ context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.rows) == 0 {
		return "", nil
	}
	path := filepath.Join(a.dir, constants.CrashBackupPrefix+a.runID+constants.SpreadsheetExt)
	if err := a.writeLocked(path); err != nil {
		return "", err
	}
	a.logger.Warn("pipeline.batch.backup_written", "path", path, "rows", len(a.rows))
	a.rows = nil
	return path, nil
}

func (a *Accumulator) writeLocked(path string) error {
	values := make([][]any, 0, len(a.rows))
	for _, r := range a.rows {
		values = append(values, r.BatchValues())
	}
	if err := a.writer.Write(path, export.DefaultSheet, entity.BatchColumns, values); err != nil {
		a.logger.Error("pipeline.batch.write_error", "path", path, "rows", len(a.rows), "error", err)
		return common.StorageError("write batch "+filepath.Base(path), err)
	}
	return nil
}
