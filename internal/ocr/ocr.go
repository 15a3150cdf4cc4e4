package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/invoice-batch/constants"
)

const (
	BackendFitz    = "fitz"
	BackendPoppler = "poppler"
)

// ErrRender is returned when the first page of a document cannot be turned into an image.
var ErrRender = errors.New("render first page")

type Config struct {
	Backend   string // "fitz" (default) or "poppler"
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	DPI       int    // first-page rendering DPI, default 150
	MaxPages  int    // 0 = no limit
}

type ExtractionResult struct {
	Text     string
	Pages    int
	Method   string // "fitz-text" | "pdftotext"
	Duration time.Duration
	Warnings []string
}

// Extractor reads the embedded text layer of PDFs and renders first pages for the
// image path of the control loop.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendFitz
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 150
	}
	return &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// WithRunner swaps the command runner used by the poppler backend.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// ExtractText returns the text layer of a PDF. An empty text with a nil error means
// the document has no usable text layer.
func (e *Extractor) ExtractText(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	if ext != "pdf" {
		e.logger.Error("unsupported extension", "path", path, "extension", ext)
		return ExtractionResult{}, fmt.Errorf("unsupported extension: %q", ext)
	}

	var (
		res ExtractionResult
		err error
	)
	switch e.cfg.Backend {
	case BackendPoppler:
		res, err = e.pdfToText(ctx, path)
	default:
		res, err = fitzText(path, e.cfg.MaxPages)
	}
	res.Duration = time.Since(start)
	if err != nil {
		e.logger.Warn("ocr.text.error", "path", path, "backend", e.cfg.Backend, "error", err)
		return res, err
	}
	e.logger.Debug("ocr.text.ok",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// RenderFirstPage renders page one as PNG and returns it base64 encoded.
func (e *Extractor) RenderFirstPage(ctx context.Context, path string) (string, error) {
	start := time.Now()

	var (
		png []byte
		err error
	)
	switch e.cfg.Backend {
	case BackendPoppler:
		png, err = e.pdfToPNG(ctx, path)
	default:
		png, err = fitzRenderFirstPage(path, e.cfg.DPI)
	}
	if err != nil {
		e.logger.Warn("ocr.render.error", "path", path, "backend", e.cfg.Backend, "error", err)
		return "", fmt.Errorf("%w: %w", ErrRender, err)
	}
	if len(png) == 0 {
		return "", fmt.Errorf("%w: empty image", ErrRender)
	}

	e.logger.Debug("ocr.render.ok",
		"path", path,
		"bytes", len(png),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	var buf bytes.Buffer
	enc := base64.NewEncoder(base64.StdEncoding, &buf)
	_, _ = enc.Write(png)
	_ = enc.Close()
	return buf.String(), nil
}
