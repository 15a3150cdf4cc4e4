package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-batch/constants"
	"github.com/joseph-ayodele/invoice-batch/internal/llm"
	"github.com/joseph-ayodele/invoice-batch/internal/ocr"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// readableText is long enough to pass the readability probe.
func readableText(title string) string {
	return title + "\n" + strings.Repeat("Pos 1 Bausand 0-2 20 t 4,50 90,00 Matthäi Bauunternehmen\n", 3)
}

type fakeTexts struct {
	mu        sync.Mutex
	texts     map[string]string
	renderErr map[string]error
	onRender  func(ctx context.Context, name string) error
	calls     []string
}

func (f *fakeTexts) ExtractText(_ context.Context, path string) (ocr.ExtractionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := filepath.Base(path)
	f.calls = append(f.calls, "text:"+name)
	return ocr.ExtractionResult{Text: f.texts[name]}, nil
}

func (f *fakeTexts) RenderFirstPage(ctx context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := filepath.Base(path)
	f.calls = append(f.calls, "render:"+name)
	if f.onRender != nil {
		if err := f.onRender(ctx, name); err != nil {
			return "", err
		}
	}
	if err := f.renderErr[name]; err != nil {
		return "", err
	}
	return "iVBORw0KGgo=", nil
}

type fakeClassifier struct {
	mu     sync.Mutex
	labels map[string]constants.DocumentLabel
	errs   map[string]error
	panics map[string]bool
	hook   func(name string)
	calls  []string
}

func (f *fakeClassifier) Classify(_ context.Context, doc llm.Document) (constants.DocumentLabel, error) {
	f.mu.Lock()
	f.calls = append(f.calls, doc.FileName)
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		hook(doc.FileName)
	}
	if f.panics[doc.FileName] {
		panic("classifier exploded")
	}
	if err := f.errs[doc.FileName]; err != nil {
		return constants.LabelUnknown, err
	}
	if l, ok := f.labels[doc.FileName]; ok {
		return l, nil
	}
	return constants.LabelInvoice, nil
}

func (f *fakeClassifier) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeExtractor struct {
	mu    sync.Mutex
	raw   map[string]string
	errs  map[string]error
	docs  []llm.Document
	calls int
}

const defaultTable = "Artikelbezeichnung;Menge;Einheit;Einzelpreis;Gesamtpreis;Lieferant;Rechnungsdatum;Rechnungsempfänger\n" +
	"Bausand 0-2;20;t;4,50;90,00;Matthäi;01.02.2024;Wähler GmbH\n" +
	"Kies 2/8;5;t;12,00;60,00;Matthäi;01.02.2024;Wähler GmbH"

func (f *fakeExtractor) ExtractItems(_ context.Context, doc llm.Document) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.docs = append(f.docs, doc)
	if err := f.errs[doc.FileName]; err != nil {
		return "", err
	}
	if raw, ok := f.raw[doc.FileName]; ok {
		return raw, nil
	}
	return defaultTable, nil
}

type panicProgress struct{ after int }

func (p *panicProgress) Add(int) error {
	p.after--
	if p.after <= 0 {
		panic("progress bar broke")
	}
	return nil
}

type failingWriter struct{ err error }

func (w failingWriter) Write(string, string, []string, [][]any) error { return w.err }

var errDisk = errors.New("disk full")

// seedInput creates empty PDFs in dir and returns their paths in order.
func seedInput(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	paths := make([]string, 0, len(names))
	for _, n := range names {
		p := filepath.Join(dir, n)
		require.NoError(t, os.WriteFile(p, []byte("%PDF-1.4 "+n), 0o644))
		paths = append(paths, p)
	}
	return paths
}
