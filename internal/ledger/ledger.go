package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/invoice-batch/internal/common"
	"github.com/joseph-ayodele/invoice-batch/internal/entity"
	"github.com/joseph-ayodele/invoice-batch/internal/export"
)

// Store is the persisted record of input files already handled by a run.
// Implementations ignore duplicate identifiers and never update or delete.
type Store interface {
	// Load returns every recorded identifier. A missing store yields an empty set.
	Load(ctx context.Context) (map[string]struct{}, error)
	// Record appends one entry.
	Record(ctx context.Context, rec entity.ProcessingRecord) error
	Close() error
}

// TableIO is the spreadsheet access the workbook ledger needs.
type TableIO interface {
	Read(path string) (export.Table, error)
	Write(path, sheet string, columns []string, rows [][]any) error
}

const sheetName = "Verarbeitet"

// Workbook is a Store kept in a single XLSX file that is rewritten after every record.
// Large ledgers belong in the SQL backend.
type Workbook struct {
	path   string
	io     TableIO
	logger *slog.Logger

	mu      sync.Mutex
	loaded  bool
	records []entity.ProcessingRecord
	seen    map[string]struct{}
}

func NewWorkbook(path string, io TableIO, logger *slog.Logger) *Workbook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workbook{path: path, io: io, logger: logger, seen: map[string]struct{}{}}
}

func (l *Workbook) Load(_ context.Context) (map[string]struct{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.loadLocked()
	out := make(map[string]struct{}, len(l.seen))
	for k := range l.seen {
		out[k] = struct{}{}
	}
	return out, err
}

func (l *Workbook) loadLocked() error {
	l.loaded = true
	l.records = nil
	l.seen = map[string]struct{}{}

	if !export.Exists(l.path) {
		l.logger.Info("ledger.load.empty", "path", l.path)
		return nil
	}

	tbl, err := l.io.Read(l.path)
	if err != nil {
		// keep the unreadable file for manual recovery; new records start a fresh ledger
		aside := fmt.Sprintf("%s.defekt_%s", l.path, time.Now().Format("20060102_150405"))
		if rerr := os.Rename(l.path, aside); rerr != nil {
			l.logger.Error("ledger.load.move_aside_failed", "path", l.path, "error", rerr)
		}
		l.logger.Error("ledger.load.error", "path", l.path, "moved_to", aside, "error", err)
		return common.StorageError("load ledger "+l.path, err)
	}

	for _, rec := range tbl.Records {
		id := strings.TrimSpace(rec[entity.ColLedgerFile])
		if id == "" {
			continue
		}
		if _, dup := l.seen[id]; dup {
			continue
		}
		ts, _ := time.ParseInLocation(entity.LedgerTimeLayout, strings.TrimSpace(rec[entity.ColLedgerProcessedAt]), time.Local)
		l.seen[id] = struct{}{}
		l.records = append(l.records, entity.ProcessingRecord{FileIdentifier: id, ProcessedAt: ts})
	}
	l.logger.Info("ledger.load.ok", "path", l.path, "entries", len(l.records))
	return nil
}

func (l *Workbook) Record(_ context.Context, rec entity.ProcessingRecord) error {
	id := strings.TrimSpace(rec.FileIdentifier)
	if id == "" {
		return common.NewAppError("LEDGER_ERROR", "empty file identifier", common.ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.loaded {
		if err := l.loadLocked(); err != nil {
			l.logger.Warn("ledger.record.load_failed", "error", err)
		}
	}
	if _, ok := l.seen[id]; ok {
		return nil
	}
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now()
	}
	rec.FileIdentifier = id
	l.seen[id] = struct{}{}
	l.records = append(l.records, rec)

	rows := make([][]any, len(l.records))
	for i, r := range l.records {
		rows[i] = []any{r.FileIdentifier, r.ProcessedAt.Format(entity.LedgerTimeLayout)}
	}
	if err := l.io.Write(l.path, sheetName, entity.LedgerColumns, rows); err != nil {
		l.logger.Error("ledger.record.error", "file", id, "error", err)
		return common.StorageError("write ledger "+l.path, err)
	}
	return nil
}

func (l *Workbook) Close() error { return nil }
