package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/invoice-batch/constants"
	"github.com/joseph-ayodele/invoice-batch/internal/common"
	"github.com/joseph-ayodele/invoice-batch/internal/entity"
	"github.com/joseph-ayodele/invoice-batch/internal/ledger"
	"github.com/joseph-ayodele/invoice-batch/internal/llm"
	"github.com/joseph-ayodele/invoice-batch/internal/ocr"
	"github.com/joseph-ayodele/invoice-batch/internal/parse"
	"github.com/joseph-ayodele/invoice-batch/internal/plausibility"
)

// TextSource reads the text layer of a document and renders its first page.
type TextSource interface {
	ExtractText(ctx context.Context, path string) (ocr.ExtractionResult, error)
	RenderFirstPage(ctx context.Context, path string) (string, error)
}

// RowParser turns extractor output into item rows.
type RowParser interface {
	Parse(raw string, meta parse.Meta) ([]entity.ItemRow, error)
}

// Progress is advanced once per handled file.
type Progress interface {
	Add(n int) error
}

// Config holds the knobs of the control loop.
type Config struct {
	FlushInterval int // committed files between flushes, default 20
	MaxFiles      int // 0 = no limit
	Probe         ocr.ProbeConfig
}

// Option configures a Processor.
type Option func(*Processor)

// WithProgress reports per-file progress, e.g. to a progress bar.
func WithProgress(p Progress) Option {
	return func(pr *Processor) {
		if p != nil {
			pr.progress = p
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(pr *Processor) { pr.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(pr *Processor) { pr.logger = logger }
}

// Processor runs the per-file control loop: ledger gate, readability probe, image
// fallback, classification, extraction, parsing, plausibility, commit and periodic flush.
type Processor struct {
	cfg        Config
	ledger     ledger.Store
	texts      TextSource
	classifier llm.Classifier
	extractor  llm.ItemExtractor
	parser     RowParser
	router     *Router

	progress Progress
	now      func() time.Time
	logger   *slog.Logger
}

func NewProcessor(
	cfg Config,
	store ledger.Store,
	texts TextSource,
	classifier llm.Classifier,
	extractor llm.ItemExtractor,
	parser RowParser,
	router *Router,
	opts ...Option,
) *Processor {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 20
	}
	p := &Processor{
		cfg:        cfg,
		ledger:     store,
		texts:      texts,
		classifier: classifier,
		extractor:  extractor,
		parser:     parser,
		router:     router,
		progress:   noProgress{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Run processes files strictly in order. It returns early only on context
// cancellation or a panic escaping the loop; in both cases rows not yet flushed are
// written to the crash backup. On normal completion the remaining rows are flushed
// as a regular batch.
func (p *Processor) Run(ctx context.Context, rc *RunContext, files []string) (err error) {
	start := p.now()
	ctx = common.WithRunID(ctx, rc.ID)

	seen, lErr := p.ledger.Load(ctx)
	if lErr != nil {
		p.logger.Error("pipeline.ledger.load_error", "error", lErr)
		rc.AddError("Liste verarbeiteter Dateien nicht lesbar, starte mit leerer Liste: %v", lErr)
	}
	if seen == nil {
		seen = map[string]struct{}{}
	}
	if p.cfg.MaxFiles > 0 && len(files) > p.cfg.MaxFiles {
		p.logger.Warn("pipeline.run.max_files", "found", len(files), "limit", p.cfg.MaxFiles)
		files = files[:p.cfg.MaxFiles]
	}

	p.logger.Info("pipeline.run.start", "run_id", rc.ID, "files", len(files), "known", len(seen))

	completed := false
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline.run.panic", "run_id", rc.ID, "panic", r)
			rc.AddError("Lauf abgebrochen: %v", r)
			err = fmt.Errorf("%w: run aborted: %v", common.ErrInternal, r)
		}
		if completed {
			return
		}
		path, bErr := rc.Accumulator.Backup(context.WithoutCancel(ctx))
		if bErr != nil {
			rc.AddError("Notfallsicherung fehlgeschlagen: %v", bErr)
			return
		}
		if path != "" {
			rc.AddError("Notfallsicherung geschrieben: %s", filepath.Base(path))
		}
	}()

	committed := 0
	for _, path := range files {
		if ctxErr := ctx.Err(); ctxErr != nil {
			p.logger.Warn("pipeline.run.cancelled", "run_id", rc.ID, "error", ctxErr)
			return ctxErr
		}
		outcome := p.processFile(ctx, rc, seen, path)
		_ = p.progress.Add(1)

		if outcome == constants.OutcomeArchived {
			committed++
			if committed%p.cfg.FlushInterval == 0 {
				p.flush(ctx, rc)
			}
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	p.flush(ctx, rc)
	completed = rc.Accumulator.Len() == 0

	p.logger.Info("pipeline.run.done",
		"run_id", rc.ID,
		"files", len(files),
		"committed", committed,
		"errors", len(rc.Errors()),
		"elapsed_ms", p.now().Sub(start).Milliseconds(),
	)
	return nil
}

func (p *Processor) flush(ctx context.Context, rc *RunContext) {
	path, err := rc.Accumulator.Flush(ctx)
	if err != nil {
		rc.AddError("Zwischenspeicherung fehlgeschlagen, Zeilen bleiben im Speicher: %v", err)
		return
	}
	if path != "" {
		rc.UpdateStats(func(s *Stats) { s.Flushes++ })
	}
}

// processFile contains panics of a single file; the file goes to the problem folder.
func (p *Processor) processFile(ctx context.Context, rc *RunContext, seen map[string]struct{}, path string) (outcome constants.Outcome) {
	name := filepath.Base(path)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline.file.panic", "file", name, "panic", r)
			rc.AddError("%s: unerwarteter Fehler: %v", name, r)
			outcome = p.finish(ctx, rc, seen, path, constants.OutcomeProblem, constants.PrefixCrashed)
		}
	}()
	return p.handle(common.WithFileName(ctx, name), rc, seen, path)
}

// handle walks one file through the stages. An empty outcome means the file was left
// in place because the run is being cancelled.
func (p *Processor) handle(ctx context.Context, rc *RunContext, seen map[string]struct{}, path string) constants.Outcome {
	name := filepath.Base(path)
	start := p.now()
	rc.UpdateStats(func(s *Stats) { s.Total++ })

	if _, ok := seen[name]; ok {
		p.logger.Info("pipeline.file.already_processed", "file", name)
		return p.finish(ctx, rc, seen, path, constants.OutcomeAlreadyProcessed, "")
	}
	p.logger.Info("pipeline.file.start", "file", name)

	res, err := p.texts.ExtractText(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return ""
		}
		p.logger.Warn("pipeline.file.text_error", "file", name, "error", err)
	}
	text := ocr.Normalize(res.Text)
	verdict := ocr.Probe(text, p.cfg.Probe)

	doc := llm.Document{FileName: name}
	method := constants.MethodText
	if verdict.Readable {
		doc.Text = text
	} else {
		p.logger.Info("pipeline.file.image_fallback", "file", name, "reason", verdict.Reason, "chars", verdict.Chars)
		img, rErr := p.texts.RenderFirstPage(ctx, path)
		if rErr != nil {
			if ctx.Err() != nil {
				return ""
			}
			rc.AddError("%s: weder Text noch Bild lesbar: %v", name, rErr)
			return p.finish(ctx, rc, seen, path, constants.OutcomeProblem, constants.PrefixUnreadable)
		}
		doc.ImageBase64 = img
		method = constants.MethodImageOCR
	}

	label, err := p.classifier.Classify(ctx, doc)
	if err != nil {
		if ctx.Err() != nil {
			return ""
		}
		p.logger.Warn("pipeline.file.classify_error", "file", name, "error", err)
		rc.AddError("%s: Klassifizierung fehlgeschlagen: %v", name, err)
		label = constants.LabelUnknown
	}
	if !label.IsInvoice() {
		return p.finish(ctx, rc, seen, path, constants.OutcomeNonInvoice, string(label)+"_")
	}

	raw, err := p.extractor.ExtractItems(ctx, doc)
	if err != nil {
		if ctx.Err() != nil {
			return ""
		}
		if errors.Is(err, llm.ErrExtractionRefused) {
			rc.AddError("%s: Extraktion abgelehnt: %v", name, err)
		} else {
			rc.AddError("%s: Extraktion fehlgeschlagen: %v", name, err)
		}
		return p.finish(ctx, rc, seen, path, constants.OutcomeProblem, constants.PrefixGatewayError)
	}

	rows, err := p.parser.Parse(raw, parse.Meta{
		SourceFile:   name,
		DocumentType: string(label),
		Method:       method,
		Duration:     p.now().Sub(start).Seconds(),
		DocumentText: text,
	})
	if err != nil {
		rc.AddError("%s: Tabelle unbrauchbar: %v", name, err)
		return p.finish(ctx, rc, seen, path, constants.OutcomeProblem, constants.PrefixUnusableTable)
	}
	plausibility.Tag(rows)

	rc.Accumulator.Append(rows)
	elapsed := p.now().Sub(start).Seconds()
	rc.UpdateStats(func(s *Stats) {
		s.Rows += len(rows)
		if method == constants.MethodImageOCR {
			s.ImageFiles++
			s.ImageSeconds += elapsed
		} else {
			s.TextFiles++
			s.TextSeconds += elapsed
		}
	})
	p.logger.Info("pipeline.file.committed",
		"file", name,
		"method", method,
		"rows", len(rows),
		"elapsed_ms", p.now().Sub(start).Milliseconds(),
	)
	return p.finish(ctx, rc, seen, path, constants.OutcomeArchived, "")
}

// finish routes the file, records it in the ledger and counts the outcome. Routing
// and ledger failures go to the error list.
func (p *Processor) finish(ctx context.Context, rc *RunContext, seen map[string]struct{}, path string, outcome constants.Outcome, prefix string) constants.Outcome {
	name := filepath.Base(path)
	if _, err := p.router.Move(path, outcome, prefix); err != nil {
		p.logger.Error("pipeline.route.error", "file", name, "outcome", outcome, "error", err)
		rc.AddError("%s: Verschieben nach %s fehlgeschlagen: %v", name, outcome, err)
	}

	rec := entity.ProcessingRecord{FileIdentifier: name, ProcessedAt: p.now()}
	if err := p.ledger.Record(context.WithoutCancel(ctx), rec); err != nil {
		p.logger.Error("ledger.record.error", "file", name, "error", err)
		rc.AddError("%s: Eintrag in Liste verarbeiteter Dateien fehlgeschlagen: %v", name, err)
		rc.UpdateStats(func(s *Stats) { s.LedgerWriteFails++ })
	}
	seen[name] = struct{}{}

	rc.UpdateStats(func(s *Stats) {
		switch outcome {
		case constants.OutcomeArchived:
			s.Archived++
		case constants.OutcomeNonInvoice:
			s.NonInvoice++
		case constants.OutcomeProblem:
			s.Problem++
		case constants.OutcomeAlreadyProcessed:
			s.Skipped++
		}
	})
	return outcome
}

type noProgress struct{}

func (noProgress) Add(int) error { return nil }
