package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("WORK_DIR", "/data")
	cfg := LoadConfig()

	assert.Equal(t, 20, cfg.Pipeline.FlushInterval)
	assert.Equal(t, 1000, cfg.Pipeline.MaxFiles)
	assert.Equal(t, 80, cfg.Pipeline.MinTextChars)
	assert.Equal(t, []string{`^VL<\?LHH`}, cfg.Pipeline.RejectPatterns)
	assert.Equal(t, LedgerBackendXLSX, cfg.Ledger.Backend)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, filepath.Join("/data", "zu_verarbeiten"), cfg.Paths.InputPath())
	assert.Equal(t, "/data", cfg.Paths.OutputPath())
	assert.Equal(t, filepath.Join("/data", "verarbeitete_dateien.xlsx"), cfg.Paths.Resolve(cfg.Paths.LedgerFile))
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("FLUSH_INTERVAL", "5")
	t.Setenv("KNOWN_SUPPLIERS", "Acme, ,Beta ")
	t.Setenv("OPENAI_TIMEOUT", "15s")
	t.Setenv("OUTPUT_DIR", "/out")
	t.Setenv("MAX_FILES", "not-a-number")

	cfg := LoadConfig()
	assert.Equal(t, 5, cfg.Pipeline.FlushInterval)
	assert.Equal(t, []string{"Acme", "Beta"}, cfg.Pipeline.KnownSuppliers)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 1000, cfg.Pipeline.MaxFiles)
	assert.Equal(t, "/out/fehlerprotokoll.txt", cfg.Paths.Resolve(cfg.Paths.ErrorLogFile))
	assert.Equal(t, "/abs/x.xlsx", cfg.Paths.Resolve("/abs/x.xlsx"))
}

func TestApplyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pipeline:
  flush_interval: 7
  subsidiaries: [Nord, Süd]
ledger:
  backend: sql
  dsn: ledger.db
`), 0o644))

	cfg := LoadConfig()
	require.NoError(t, cfg.ApplyFile(path))
	assert.Equal(t, 7, cfg.Pipeline.FlushInterval)
	assert.Equal(t, []string{"Nord", "Süd"}, cfg.Pipeline.Subsidiaries)
	assert.Equal(t, 1000, cfg.Pipeline.MaxFiles, "keys absent from the file keep their value")
	assert.Equal(t, LedgerBackendSQL, cfg.Ledger.Backend)
	require.NoError(t, cfg.Validate())
}

func TestApplyFileErrors(t *testing.T) {
	cfg := LoadConfig()
	require.Error(t, cfg.ApplyFile(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("pipeline: [oops"), 0o644))
	err := cfg.ApplyFile(bad)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown ledger backend", func(c *Config) { c.Ledger.Backend = "csv" }, "LEDGER_BACKEND"},
		{"sql without dsn", func(c *Config) { c.Ledger.Backend = LedgerBackendSQL; c.Ledger.DSN = "" }, "LEDGER_DSN"},
		{"zero flush interval", func(c *Config) { c.Pipeline.FlushInterval = 0 }, "FLUSH_INTERVAL"},
		{"broken reject pattern", func(c *Config) { c.Pipeline.RejectPatterns = []string{"("} }, "REJECT_PATTERNS"},
		{"unknown ocr backend", func(c *Config) { c.OCR.Backend = "tesseract" }, "OCR_BACKEND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestRequireLLMAndPatterns(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := LoadConfig()
	require.ErrorIs(t, cfg.RequireLLM(), ErrInvalidInput)

	cfg.LLM.APIKey = "sk-test"
	require.NoError(t, cfg.RequireLLM())

	patterns, err := cfg.CompiledRejectPatterns()
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.True(t, patterns[0].MatchString("VL<?LHH garbage"))
}
