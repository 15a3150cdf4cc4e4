package pipeline

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joseph-ayodele/invoice-batch/constants"
)

// Stats counts what a run did with its input.
type Stats struct {
	Total            int
	Archived         int
	NonInvoice       int
	Problem          int
	Skipped          int
	TextFiles        int
	ImageFiles       int
	TextSeconds      float64
	ImageSeconds     float64
	Rows             int
	Flushes          int
	LedgerWriteFails int
}

// AvgTextSeconds is the mean processing time of committed text-path files.
func (s Stats) AvgTextSeconds() float64 {
	if s.TextFiles == 0 {
		return 0
	}
	return s.TextSeconds / float64(s.TextFiles)
}

// AvgImageSeconds is the mean processing time of committed image-path files.
func (s Stats) AvgImageSeconds() float64 {
	if s.ImageFiles == 0 {
		return 0
	}
	return s.ImageSeconds / float64(s.ImageFiles)
}

// RunContext carries the state of a single run: identity, error list, statistics and
// the batch accumulator. It is passed explicitly to every stage.
type RunContext struct {
	ID        string
	Timestamp string
	StartedAt time.Time
	OutputDir string

	Accumulator *Accumulator

	mu    sync.Mutex
	errs  []string
	stats Stats
}

// NewRunContext creates a run with a fresh ULID whose accumulator writes batch
// artifacts into outputDir.
func NewRunContext(now time.Time, outputDir string, writer TableWriter, logger *slog.Logger) *RunContext {
	id := ulid.MustNew(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0)).String()
	return &RunContext{
		ID:          id,
		Timestamp:   now.Format(constants.RunTimestampLayout),
		StartedAt:   now,
		OutputDir:   outputDir,
		Accumulator: NewAccumulator(outputDir, id, writer, logger),
	}
}

// AddError appends a message to the run error list.
func (rc *RunContext) AddError(format string, args ...any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.errs = append(rc.errs, fmt.Sprintf(format, args...))
}

// Errors returns a copy of the error list.
func (rc *RunContext) Errors() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make([]string, len(rc.errs))
	copy(out, rc.errs)
	return out
}

// UpdateStats applies fn to the statistics under the run lock.
func (rc *RunContext) UpdateStats(fn func(*Stats)) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	fn(&rc.stats)
}

// Stats returns a snapshot of the statistics.
func (rc *RunContext) Stats() Stats {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.stats
}

// WriteErrorLog persists the error list as plain text. Nothing is written when the
// list is empty; the returned path is empty in that case.
func (rc *RunContext) WriteErrorLog(path string) (string, error) {
	errs := rc.Errors()
	if len(errs) == 0 {
		return "", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Lauf %s (%s)\n", rc.ID, rc.StartedAt.Format(time.RFC3339))
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e)
		b.WriteString("\n")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create error log dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write error log: %w", err)
	}
	return path, nil
}

// Summary renders the end-of-run report.
func (rc *RunContext) Summary() string {
	s := rc.Stats()
	var b strings.Builder
	fmt.Fprintf(&b, "Lauf %s abgeschlossen\n", rc.ID)
	fmt.Fprintf(&b, "  Dateien gesamt:        %d\n", s.Total)
	fmt.Fprintf(&b, "  archiviert:            %d\n", s.Archived)
	fmt.Fprintf(&b, "  keine Rechnung:        %d\n", s.NonInvoice)
	fmt.Fprintf(&b, "  Problemfälle:          %d\n", s.Problem)
	fmt.Fprintf(&b, "  bereits verarbeitet:   %d\n", s.Skipped)
	fmt.Fprintf(&b, "  Text / Bild:           %d / %d\n", s.TextFiles, s.ImageFiles)
	fmt.Fprintf(&b, "  Ø Dauer Text / Bild:   %.1fs / %.1fs\n", s.AvgTextSeconds(), s.AvgImageSeconds())
	fmt.Fprintf(&b, "  Positionen:            %d in %d Batches\n", s.Rows, s.Flushes)
	if n := len(rc.Errors()); n > 0 {
		fmt.Fprintf(&b, "  Fehler:                %d\n", n)
	}
	return b.String()
}
