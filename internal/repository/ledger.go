package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-batch/internal/common"
	"github.com/joseph-ayodele/invoice-batch/internal/entity"
)

// LedgerStore keeps the processed-file ledger in a SQL table.
type LedgerStore struct {
	db     *DB
	logger *slog.Logger
}

// NewLedgerStore takes ownership of db and creates the ledger table if needed.
func NewLedgerStore(ctx context.Context, db *DB, logger *slog.Logger) (*LedgerStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &LedgerStore{db: db, logger: logger}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *LedgerStore) initSchema(ctx context.Context) error {
	tsType := "TEXT"
	if s.db.Dialect == DialectPostgres {
		tsType = "TIMESTAMPTZ"
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS processed_files (
	file_identifier TEXT PRIMARY KEY,
	processed_at    %s NOT NULL
)`, tsType)
	if _, err := s.db.SQL.ExecContext(ctx, ddl); err != nil {
		return common.StorageError("create processed_files", err)
	}
	return nil
}

func (s *LedgerStore) Load(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.SQL.QueryContext(ctx, `SELECT file_identifier FROM processed_files`)
	if err != nil {
		s.logger.Error("ledger.load.error", "error", err)
		return map[string]struct{}{}, common.StorageError("load ledger", err)
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return map[string]struct{}{}, common.StorageError("scan ledger", err)
		}
		out[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return map[string]struct{}{}, common.StorageError("iterate ledger", err)
	}
	s.logger.Info("ledger.load.ok", "entries", len(out))
	return out, nil
}

func (s *LedgerStore) Record(ctx context.Context, rec entity.ProcessingRecord) error {
	id := strings.TrimSpace(rec.FileIdentifier)
	if id == "" {
		return common.NewAppError("LEDGER_ERROR", "empty file identifier", common.ErrInvalidInput)
	}
	ts := rec.ProcessedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	var err error
	switch s.db.Dialect {
	case DialectPostgres:
		_, err = s.db.SQL.ExecContext(ctx,
			`INSERT INTO processed_files (file_identifier, processed_at) VALUES ($1, $2)
			 ON CONFLICT (file_identifier) DO NOTHING`, id, ts.UTC())
	default:
		_, err = s.db.SQL.ExecContext(ctx,
			`INSERT INTO processed_files (file_identifier, processed_at) VALUES (?, ?)
			 ON CONFLICT (file_identifier) DO NOTHING`, id, ts.UTC().Format(time.RFC3339Nano))
	}
	if err != nil {
		s.logger.Error("ledger.record.error", "file", id, "error", err)
		return common.StorageError("record "+id, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *LedgerStore) Close() error {
	Close(s.db, s.logger)
	return nil
}
