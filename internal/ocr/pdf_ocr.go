package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (e *Extractor) pdfToText(ctx context.Context, path string) (ExtractionResult, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return ExtractionResult{Method: "pdftotext", Warnings: []string{string(errb)}}, err
	}
	text := string(out)
	// A form-feed \f is used as page separator by default
	pages := 1 + strings.Count(strings.TrimRight(text, "\f"), "\f")
	return ExtractionResult{Text: text, Pages: pages, Method: "pdftotext"}, nil
}

func (e *Extractor) pdfToPNG(ctx context.Context, path string) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "ib-pp-*")
	if err != nil {
		return nil, err
	}
	defer func(dir string) {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn("failed to remove temp dir", "dir", dir, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -f 1 -l 1 -r 150 -png -singlefile <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-f", "1", "-l", "1", "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", "-singlefile", path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}
	return os.ReadFile(prefix + ".png")
}
