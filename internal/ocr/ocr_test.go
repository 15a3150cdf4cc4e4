package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	mu     sync.Mutex
	calls  [][]string
	stdout []byte
	err    error
	// writeFile, when set, is created at args[len(args)-1]+".png" to mimic pdftoppm.
	writeFile []byte
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, append([]string{name}, args...))
	if s.err != nil {
		return nil, []byte("boom"), s.err
	}
	if s.writeFile != nil {
		if err := os.WriteFile(args[len(args)-1]+".png", s.writeFile, 0o644); err != nil {
			return nil, nil, err
		}
	}
	return s.stdout, nil, nil
}

func TestProbe(t *testing.T) {
	long := strings.Repeat("Rechnung Nr. 4711 vom 01.02.2024 Summe 1.234,56 EUR ", 3)
	tests := []struct {
		name     string
		text     string
		cfg      ProbeConfig
		readable bool
	}{
		{name: "empty", text: "", cfg: ProbeConfig{MinChars: 80}, readable: false},
		{name: "short", text: "Rechnung 12", cfg: ProbeConfig{MinChars: 80}, readable: false},
		{name: "whitespace does not count", text: strings.Repeat(" \n", 100) + "abc", cfg: ProbeConfig{MinChars: 80}, readable: false},
		{name: "long", text: long, cfg: ProbeConfig{MinChars: 80}, readable: true},
		{name: "garbage prefix", text: "VL<?LHH" + long, cfg: ProbeConfig{MinChars: 80, RejectPatterns: DefaultRejectPatterns}, readable: false},
		{name: "custom threshold", text: "Rechnung 12", cfg: ProbeConfig{MinChars: 5}, readable: true},
		{name: "custom pattern", text: long, cfg: ProbeConfig{MinChars: 10, RejectPatterns: []*regexp.Regexp{regexp.MustCompile(`^Rechnung`)}}, readable: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Probe(tt.text, tt.cfg)
			assert.Equal(t, tt.readable, r.Readable, r.Reason)
			if !tt.readable {
				assert.NotEmpty(t, r.Reason)
			}
		})
	}
}

func TestProbe_ConfidenceForInvoiceText(t *testing.T) {
	r := Probe("Rechnung vom 01.02.2024\nBausand 12,00 t\nSumme 1.234,56 EUR\n"+strings.Repeat("x", 80), ProbeConfig{MinChars: 10})
	require.True(t, r.Readable)
	assert.InDelta(t, 1.0, r.Confidence, 0.001)
}

func TestNormalize(t *testing.T) {
	in := "Pos\t1  Bausand\r\n\n\n\nSumme   12,00 \fSeite 2"
	assert.Equal(t, "Pos 1 Bausand\n\nSumme 12,00\nSeite 2", Normalize(in))
}

func TestExtractor_PopplerText(t *testing.T) {
	r := &stubRunner{stdout: []byte("page one\fpage two\f")}
	e := NewExtractor(Config{Backend: BackendPoppler}, nil).WithRunner(r)

	res, err := e.ExtractText(context.Background(), "/in/doc.PDF")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "pdftotext", res.Method)
	require.Len(t, r.calls, 1)
	assert.Equal(t, "pdftotext", r.calls[0][0])
	assert.Equal(t, "-", r.calls[0][len(r.calls[0])-1])
}

func TestExtractor_RejectsNonPDF(t *testing.T) {
	e := NewExtractor(Config{Backend: BackendPoppler}, nil).WithRunner(&stubRunner{})
	_, err := e.ExtractText(context.Background(), "scan.png")
	assert.Error(t, err)
}

func TestExtractor_PopplerRender(t *testing.T) {
	r := &stubRunner{writeFile: []byte{0x89, 'P', 'N', 'G'}}
	e := NewExtractor(Config{Backend: BackendPoppler, DPI: 100}, nil).WithRunner(r)

	b64, err := e.RenderFirstPage(context.Background(), filepath.Join("in", "doc.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "iVBORw==", b64)
	assert.Contains(t, r.calls[0], "-singlefile")
	assert.Contains(t, r.calls[0], "100")
}

func TestExtractor_RenderFailureIsErrRender(t *testing.T) {
	e := NewExtractor(Config{Backend: BackendPoppler}, nil).WithRunner(&stubRunner{err: errors.New("exit 1")})
	_, err := e.RenderFirstPage(context.Background(), "doc.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRender)
}
