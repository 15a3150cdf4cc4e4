package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-batch/constants"
	"github.com/joseph-ayodele/invoice-batch/internal/entity"
	"github.com/joseph-ayodele/invoice-batch/internal/export"
	"github.com/joseph-ayodele/invoice-batch/internal/llm"
)

// CategoryLogs reads and writes the category log series in a directory.
type CategoryLogs struct {
	dir    string
	io     TableIO
	logger *slog.Logger
}

func NewCategoryLogs(dir string, io TableIO, logger *slog.Logger) *CategoryLogs {
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryLogs{dir: dir, io: io, logger: logger}
}

// LoadReusable returns the reusable entries of every log keyed by normalized
// description. Newer logs win over older ones; entries with a rejected category or
// subcategory are dropped. Logs that cannot be read or lack columns are skipped and
// returned as warnings.
func (c *CategoryLogs) LoadReusable() (map[string]entity.CategoryLogEntry, []string) {
	paths, err := filepath.Glob(filepath.Join(c.dir, constants.CategoryLogGlob))
	if err != nil {
		return map[string]entity.CategoryLogEntry{}, []string{fmt.Sprintf("Kategorielogs nicht auffindbar: %v", err)}
	}
	// names carry <timestamp>_<ulid>, so lexical order is chronological
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))

	out := map[string]entity.CategoryLogEntry{}
	var warnings []string
	rejected := 0
	for _, path := range paths {
		tbl, err := c.io.Read(path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("Kategorielog %s übersprungen: %v", filepath.Base(path), err))
			continue
		}
		if !hasColumn(tbl.Columns, entity.ColLogDescription) || !hasColumn(tbl.Columns, entity.ColLogCategory) || !hasColumn(tbl.Columns, entity.ColLogSubcategory) {
			warnings = append(warnings, fmt.Sprintf("Kategorielog %s übersprungen: fehlende Spalten", filepath.Base(path)))
			continue
		}
		for _, rec := range tbl.Records {
			e := entity.CategoryLogEntry{
				Description: strings.TrimSpace(rec[entity.ColLogDescription]),
				Category:    strings.TrimSpace(rec[entity.ColLogCategory]),
				Subcategory: strings.TrimSpace(rec[entity.ColLogSubcategory]),
				Origin:      constants.CategoryOrigin(strings.TrimSpace(rec[entity.ColLogOrigin])),
			}
			key := constants.NormalizeDescription(e.Description)
			if key == "" {
				continue
			}
			if !e.Reusable() {
				rejected++
				continue
			}
			if _, seen := out[key]; !seen {
				out[key] = e
			}
		}
	}
	c.logger.Info("enrich.categories.logs_loaded", "logs", len(paths), "reusable", len(out), "rejected", rejected)
	return out, warnings
}

// Write stores entries as kategorielog_<timestamp>_<runID>.xlsx.
func (c *CategoryLogs) Write(entries []entity.CategoryLogEntry, timestamp, runID string) (string, error) {
	path := filepath.Join(c.dir, fmt.Sprintf("%s%s_%s%s", constants.CategoryLogPrefix, timestamp, runID, constants.SpreadsheetExt))
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{e.Description, e.Category, e.Subcategory, string(e.Origin), e.Timestamp.Format(entity.LedgerTimeLayout)})
	}
	if err := c.io.Write(path, export.DefaultSheet, entity.CategoryLogColumns, rows); err != nil {
		return "", fmt.Errorf("write category log: %w", err)
	}
	return path, nil
}

// CategoryOutcome is the result of resolving categories for a set of descriptions.
type CategoryOutcome struct {
	// Assigned maps normalized description to its entry; unresolved descriptions are absent.
	Assigned   map[string]entity.CategoryLogEntry
	Reused     int
	Derived    int
	Unresolved []string
	Errors     []string
}

// ResolveCategories reuses logged categories where possible and asks the categorizer
// for the rest, in one request or in chunks of batchSize when batchSize > 0.
// Categorizer failures and missing answers leave descriptions unresolved.
func ResolveCategories(
	ctx context.Context,
	descriptions []string,
	reusable map[string]entity.CategoryLogEntry,
	categorizer llm.Categorizer,
	batchSize int,
	now time.Time,
	logger *slog.Logger,
) CategoryOutcome {
	if logger == nil {
		logger = slog.Default()
	}
	out := CategoryOutcome{Assigned: map[string]entity.CategoryLogEntry{}}

	var pending []string
	pendingSeen := map[string]struct{}{}
	for _, d := range descriptions {
		key := constants.NormalizeDescription(d)
		if key == "" {
			continue
		}
		if _, done := out.Assigned[key]; done {
			continue
		}
		if e, ok := reusable[key]; ok {
			out.Assigned[key] = entity.CategoryLogEntry{
				Description: d,
				Category:    e.Category,
				Subcategory: e.Subcategory,
				Origin:      constants.OriginReused,
				Timestamp:   now,
			}
			out.Reused++
			continue
		}
		if _, dup := pendingSeen[key]; !dup {
			pendingSeen[key] = struct{}{}
			pending = append(pending, d)
		}
	}

	for _, chunk := range chunks(pending, batchSize) {
		if categorizer == nil {
			out.Errors = append(out.Errors, fmt.Sprintf("Kein Kategorisierer konfiguriert, %d Artikel ohne Kategorie", len(chunk)))
			continue
		}
		answers, err := categorizer.Categorize(ctx, chunk)
		if err != nil {
			logger.Error("enrich.categories.gateway_error", "descriptions", len(chunk), "error", err)
			out.Errors = append(out.Errors, fmt.Sprintf("Kategorisierung von %d Artikeln fehlgeschlagen: %v", len(chunk), err))
			continue
		}
		byKey := map[string]entity.CategoryAssignment{}
		for _, a := range answers {
			key := constants.NormalizeDescription(a.Description)
			if _, seen := byKey[key]; !seen {
				byKey[key] = a
			}
		}
		for _, d := range chunk {
			key := constants.NormalizeDescription(d)
			a, ok := byKey[key]
			if !ok || strings.TrimSpace(a.Category) == "" {
				continue
			}
			out.Assigned[key] = entity.CategoryLogEntry{
				Description: d,
				Category:    strings.TrimSpace(a.Category),
				Subcategory: strings.TrimSpace(a.Subcategory),
				Origin:      constants.OriginLLMDerived,
				Timestamp:   now,
			}
			out.Derived++
		}
	}

	for _, d := range pending {
		if _, ok := out.Assigned[constants.NormalizeDescription(d)]; !ok {
			out.Unresolved = append(out.Unresolved, d)
		}
	}
	if n := len(out.Unresolved); n > 0 {
		out.Errors = append(out.Errors, fmt.Sprintf("%d Artikel ohne Kategorie (%s): %s",
			n, constants.Uncategorized, strings.Join(preview(out.Unresolved, 5), ", ")))
	}
	logger.Info("enrich.categories.ok",
		"descriptions", len(descriptions),
		"reused", out.Reused,
		"derived", out.Derived,
		"unresolved", len(out.Unresolved),
	)
	return out
}

// LogEntries returns the assignments in stable order for the category log.
func (o CategoryOutcome) LogEntries() []entity.CategoryLogEntry {
	keys := make([]string, 0, len(o.Assigned))
	for k := range o.Assigned {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]entity.CategoryLogEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, o.Assigned[k])
	}
	return out
}

func chunks(items []string, size int) [][]string {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || size >= len(items) {
		return [][]string{items}
	}
	var out [][]string
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

func preview(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return append(append([]string{}, items[:n]...), "…")
}
