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
	"github.com/joseph-ayodele/invoice-batch/internal/common"
	"github.com/joseph-ayodele/invoice-batch/internal/entity"
	"github.com/joseph-ayodele/invoice-batch/internal/export"
	"github.com/joseph-ayodele/invoice-batch/internal/llm"
	"github.com/joseph-ayodele/invoice-batch/internal/pipeline"
)

// Config locates the artifacts the enricher reads and writes.
type Config struct {
	Dir                 string // batch artifacts, category logs and outputs
	MappingPath         string // user-editable unit mapping
	CategorizeBatchSize int    // 0 = a single categorizer request
}

// Result summarizes one enrichment pass.
type Result struct {
	Batches          int
	Rows             int
	FinalPath        string
	CategoryLogPath  string
	UnknownUnitsPath string
	MappingCreated   bool
	UnknownUnits     []UnknownUnit
	Corrections      int
	Reused           int
	Derived          int
	Uncategorized    int
}

// Option configures an Enricher.
type Option func(*Enricher)

func WithClock(now func() time.Time) Option {
	return func(e *Enricher) { e.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Enricher) { e.logger = logger }
}

// Enricher merges every batch artifact and harmonizes units, numbers and categories.
type Enricher struct {
	cfg         Config
	io          TableIO
	categorizer llm.Categorizer
	corrector   llm.NumberCorrector
	now         func() time.Time
	logger      *slog.Logger
}

func NewEnricher(cfg Config, io TableIO, categorizer llm.Categorizer, corrector llm.NumberCorrector, opts ...Option) *Enricher {
	e := &Enricher{
		cfg:         cfg,
		io:          io,
		categorizer: categorizer,
		corrector:   corrector,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Run enriches the concatenation of all batch artifacts in the directory, including
// leftovers of earlier runs, and writes the final workbook. Per-row and per-stage
// failures degrade and go to the run error list; only writing the final workbook can
// fail the pass. A panic inside a stage is recovered and reported as an error.
func (e *Enricher) Run(ctx context.Context, rc *pipeline.RunContext) (res Result, err error) {
	start := e.now()
	ctx = common.WithRunID(ctx, rc.ID)
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("enrich.panic", "run_id", rc.ID, "panic", r)
			rc.AddError("Anreicherung abgebrochen: %v", r)
			err = fmt.Errorf("%w: enrichment aborted: %v", common.ErrInternal, r)
		}
	}()

	rows, batches := e.loadBatches(rc)
	res.Batches = batches
	if len(rows) == 0 {
		e.logger.Warn("enrich.no_batches", "dir", e.cfg.Dir, "batches", batches)
		return res, nil
	}
	res.Rows = len(rows)

	for i := range rows {
		rows[i].Description = strings.Join(strings.Fields(rows[i].Description), " ")
	}

	e.harmonizeUnits(rc, rows, &res)
	e.coerceNumbers(ctx, rc, rows, &res)
	e.assignCategories(ctx, rc, rows, &res)

	final := filepath.Join(e.cfg.Dir, constants.FinalFilePrefix+rc.Timestamp+constants.SpreadsheetExt)
	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		values = append(values, r.EnrichedValues())
	}
	if err := e.io.Write(final, export.DefaultSheet, entity.EnrichedColumns, values); err != nil {
		rc.AddError("Gesamtdatei konnte nicht geschrieben werden: %v", err)
		return res, fmt.Errorf("write final workbook: %w", err)
	}
	res.FinalPath = final

	e.logger.Info("enrich.done",
		"batches", res.Batches,
		"rows", res.Rows,
		"final", final,
		"reused", res.Reused,
		"derived", res.Derived,
		"uncategorized", res.Uncategorized,
		"unknown_units", len(res.UnknownUnits),
		"elapsed_ms", e.now().Sub(start).Milliseconds(),
	)
	return res, nil
}

func (e *Enricher) loadBatches(rc *pipeline.RunContext) ([]entity.ItemRow, int) {
	paths, err := filepath.Glob(filepath.Join(e.cfg.Dir, constants.BatchFileGlob))
	if err != nil {
		rc.AddError("Batchdateien nicht auffindbar: %v", err)
		return nil, 0
	}
	sort.Strings(paths)

	var rows []entity.ItemRow
	for _, p := range paths {
		tbl, err := e.io.Read(p)
		if err != nil {
			e.logger.Error("enrich.batch.read_error", "path", p, "error", err)
			rc.AddError("Batchdatei %s nicht lesbar: %v", filepath.Base(p), err)
			continue
		}
		for _, rec := range tbl.Records {
			rows = append(rows, entity.ItemRowFromRecord(rec))
		}
	}
	e.logger.Info("enrich.batches.loaded", "batches", len(paths), "rows", len(rows))
	return rows, len(paths)
}

func (e *Enricher) harmonizeUnits(rc *pipeline.RunContext, rows []entity.ItemRow, res *Result) {
	overrides, created, err := LoadUnitMapping(e.cfg.MappingPath, e.io, e.logger)
	if err != nil {
		e.logger.Warn("enrich.units.mapping_error", "path", e.cfg.MappingPath, "error", err)
		rc.AddError("Einheiten-Mapping nicht lesbar, nur Standardzuordnung aktiv: %v", err)
	}
	res.MappingCreated = created

	mapper := NewUnitMapper(overrides)
	for i := range rows {
		rows[i].UnitNormalized = mapper.Normalize(rows[i].Unit)
	}
	res.UnknownUnits = mapper.Unknown()
	if len(res.UnknownUnits) == 0 {
		return
	}

	report := filepath.Join(e.cfg.Dir, constants.UnknownUnitsReportPrefix+rc.Timestamp+constants.SpreadsheetExt)
	values := make([][]any, 0, len(res.UnknownUnits))
	for _, u := range res.UnknownUnits {
		values = append(values, []any{u.Raw, "", u.Count})
	}
	columns := append(append([]string{}, entity.UnitMappingColumns...), entity.ColUnitCount)
	if err := e.io.Write(report, export.DefaultSheet, columns, values); err != nil {
		rc.AddError("Bericht unbekannter Einheiten nicht geschrieben: %v", err)
		return
	}
	res.UnknownUnitsPath = report
	e.logger.Info("enrich.units.unknown_reported", "path", report, "units", len(res.UnknownUnits))
}

func (e *Enricher) coerceNumbers(ctx context.Context, rc *pipeline.RunContext, rows []entity.ItemRow, res *Result) {
	coercer := NewNumberCoercer(e.corrector, e.logger)
	reported := map[string]struct{}{}

	coerce := func(row *entity.ItemRow, column, raw string) *float64 {
		v, err := coercer.Coerce(ctx, raw)
		if err != nil {
			if _, done := reported[raw]; !done {
				reported[raw] = struct{}{}
				rc.AddError("%s: %s %q nicht als Zahl lesbar: %v", row.SourceFile, column, raw, err)
			}
		}
		return v
	}
	for i := range rows {
		r := &rows[i]
		r.QuantityRaw, r.UnitPriceRaw, r.TotalPriceRaw = r.Quantity, r.UnitPrice, r.TotalPrice
		r.QuantityValue = coerce(r, entity.ColQuantity, r.Quantity)
		r.UnitPriceValue = coerce(r, entity.ColUnitPrice, r.UnitPrice)
		r.TotalPriceValue = coerce(r, entity.ColTotalPrice, r.TotalPrice)
	}
	res.Corrections = coercer.Corrections()
}

func (e *Enricher) assignCategories(ctx context.Context, rc *pipeline.RunContext, rows []entity.ItemRow, res *Result) {
	logs := NewCategoryLogs(e.cfg.Dir, e.io, e.logger)
	reusable, warnings := logs.LoadReusable()
	for _, w := range warnings {
		e.logger.Warn("enrich.categories.log_skipped", "warning", w)
		rc.AddError("%s", w)
	}

	descriptions := make([]string, 0, len(rows))
	for _, r := range rows {
		descriptions = append(descriptions, r.Description)
	}
	outcome := ResolveCategories(ctx, descriptions, reusable, e.categorizer, e.cfg.CategorizeBatchSize, e.now(), e.logger)
	for _, msg := range outcome.Errors {
		rc.AddError("%s", msg)
	}

	blank := 0
	for i := range rows {
		key := constants.NormalizeDescription(rows[i].Description)
		entry, ok := outcome.Assigned[key]
		if !ok {
			rows[i].Category = constants.Uncategorized
			rows[i].Subcategory = ""
			rows[i].CategoryOrigin = ""
			res.Uncategorized++
			if key == "" {
				blank++
			}
			continue
		}
		rows[i].Category = entry.Category
		rows[i].Subcategory = entry.Subcategory
		rows[i].CategoryOrigin = entry.Origin
	}
	if blank > 0 {
		rc.AddError("%d Positionen ohne Artikelbezeichnung (%s)", blank, constants.Uncategorized)
	}
	res.Reused, res.Derived = outcome.Reused, outcome.Derived

	entries := outcome.LogEntries()
	if len(entries) == 0 {
		return
	}
	path, err := logs.Write(entries, rc.Timestamp, rc.ID)
	if err != nil {
		e.logger.Error("enrich.categories.log_write_error", "error", err)
		rc.AddError("Kategorielog nicht geschrieben: %v", err)
		return
	}
	res.CategoryLogPath = path
}
