package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/invoice-batch/internal/common"
	"github.com/joseph-ayodele/invoice-batch/internal/enrich"
	"github.com/joseph-ayodele/invoice-batch/internal/export"
	"github.com/joseph-ayodele/invoice-batch/internal/ledger"
	"github.com/joseph-ayodele/invoice-batch/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-batch/internal/ocr"
	"github.com/joseph-ayodele/invoice-batch/internal/parse"
	"github.com/joseph-ayodele/invoice-batch/internal/pipeline"
	"github.com/joseph-ayodele/invoice-batch/internal/repository"
)

// app holds the collaborators shared by the run, enrich and watch commands.
type app struct {
	cfg       *common.Config
	logger    *slog.Logger
	workbook  *export.Workbook
	ledger    ledger.Store
	extractor *ocr.Extractor
	client    *openai.Client
	parser    *parse.Parser
	probe     ocr.ProbeConfig
}

func newApp(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*app, error) {
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}
	patterns, err := cfg.CompiledRejectPatterns()
	if err != nil {
		return nil, err
	}

	wb := export.NewWorkbook(logger)
	store, err := openLedger(ctx, cfg, wb, logger)
	if err != nil {
		return nil, err
	}

	client := openai.NewClient(openai.ConfigFrom(cfg), logger)
	logger.Info("OpenAI client initialized", "model", cfg.LLM.Model)

	return &app{
		cfg:       cfg,
		logger:    logger,
		workbook:  wb,
		ledger:    store,
		extractor: newExtractor(cfg, logger),
		client:    client,
		parser:    parse.New(cfg.Pipeline.KnownSuppliers, cfg.Pipeline.Subsidiaries),
		probe:     ocr.ProbeConfig{MinChars: cfg.Pipeline.MinTextChars, RejectPatterns: patterns},
	}, nil
}

func (a *app) Close() {
	if err := a.ledger.Close(); err != nil {
		a.logger.Warn("ledger.close.error", "error", err)
	}
}

// openLedger selects the ledger backend from LEDGER_BACKEND.
func openLedger(ctx context.Context, cfg *common.Config, wb *export.Workbook, logger *slog.Logger) (ledger.Store, error) {
	switch cfg.Ledger.Backend {
	case common.LedgerBackendSQL:
		db, err := repository.Open(ctx, repository.Config{
			DSN:             cfg.Ledger.DSN,
			MaxConns:        cfg.Ledger.MaxConns,
			MinConns:        cfg.Ledger.MinConns,
			MaxConnLifetime: cfg.Ledger.MaxConnLifetime,
			MaxConnIdleTime: cfg.Ledger.MaxConnIdleTime,
			DialTimeout:     cfg.Ledger.DialTimeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("open ledger database: %w", err)
		}
		if err := repository.HealthCheck(ctx, db, cfg.Ledger.DialTimeout, logger); err != nil {
			repository.Close(db, logger)
			return nil, fmt.Errorf("ledger database health: %w", err)
		}
		store, err := repository.NewLedgerStore(ctx, db, logger)
		if err != nil {
			repository.Close(db, logger)
			return nil, err
		}
		return store, nil
	default:
		return ledger.NewWorkbook(cfg.Paths.Resolve(cfg.Paths.LedgerFile), wb, logger), nil
	}
}

func newExtractor(cfg *common.Config, logger *slog.Logger) *ocr.Extractor {
	return ocr.NewExtractor(ocr.Config{
		Backend:   cfg.OCR.Backend,
		Pdftotext: cfg.OCR.Pdftotext,
		Pdftoppm:  cfg.OCR.Pdftoppm,
		DPI:       cfg.OCR.DPI,
	}, logger)
}

func (a *app) newProcessor(rc *pipeline.RunContext, progress pipeline.Progress) *pipeline.Processor {
	folders := pipeline.NewFolders(a.cfg.Paths.OutputPath(), rc.Timestamp)
	return pipeline.NewProcessor(
		pipeline.Config{
			FlushInterval: a.cfg.Pipeline.FlushInterval,
			MaxFiles:      a.cfg.Pipeline.MaxFiles,
			Probe:         a.probe,
		},
		a.ledger,
		a.extractor,
		a.client,
		a.client,
		a.parser,
		pipeline.NewRouter(folders, a.logger),
		pipeline.WithProgress(progress),
		pipeline.WithLogger(a.logger),
	)
}

func newEnricher(cfg *common.Config, wb *export.Workbook, client *openai.Client, logger *slog.Logger) *enrich.Enricher {
	return enrich.NewEnricher(enrich.Config{
		Dir:                 cfg.Paths.OutputPath(),
		MappingPath:         cfg.Paths.Resolve(cfg.Paths.UnitMappingFile),
		CategorizeBatchSize: cfg.Pipeline.CategorizeBatchSize,
	}, wb, client, client, enrich.WithLogger(logger))
}
