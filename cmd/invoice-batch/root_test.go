package main

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-batch/internal/enrich"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range tests {
		got, err := parseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseLevel("loud")
	assert.Error(t, err)
}

func TestRootRegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"run", "enrich", "watch", "probe", "classify", "ledger"})
}

func TestPrintEnrichResult(t *testing.T) {
	var buf bytes.Buffer
	printEnrichResult(&buf, enrich.Result{})
	assert.Contains(t, buf.String(), "Keine Batch-Dateien")

	buf.Reset()
	printEnrichResult(&buf, enrich.Result{
		FinalPath:        "out/artikelpositionen_ki_GESAMT_x.xlsx",
		Rows:             3,
		Batches:          1,
		MappingCreated:   true,
		UnknownUnits:     []enrich.UnknownUnit{{Raw: "Sack", Count: 2}},
		UnknownUnitsPath: "out/einheiten_log_x.xlsx",
		Uncategorized:    1,
	})
	out := buf.String()
	assert.Contains(t, out, "3 Positionen aus 1 Batches")
	assert.Contains(t, out, "Einheiten-Mapping wurde neu angelegt")
	assert.Contains(t, out, "1 unbekannte Einheiten")
	assert.Contains(t, out, "1 Positionen ohne Kategorie")
}
