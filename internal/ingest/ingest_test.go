package ingest

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))
}

func TestListInput(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.pdf"))
	touch(t, filepath.Join(root, "A.PDF"))
	touch(t, filepath.Join(root, ".versteckt.pdf"))
	touch(t, filepath.Join(root, "notiz.txt"))
	touch(t, filepath.Join(root, "unterordner", "c.pdf"))

	files, stats, err := ListInput(root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "A.PDF"), filepath.Join(root, "b.pdf")}, files)
	assert.Equal(t, uint32(2), stats.Matched)
	assert.Equal(t, uint32(2), stats.Skipped)
}

func TestListInputMissingDir(t *testing.T) {
	files, _, err := ListInput(filepath.Join(t.TempDir(), "fehlt"))
	require.NoError(t, err)
	assert.Empty(t, files)

	_, _, err = ListInput(" ")
	assert.Error(t, err)
}

func TestWatchTriggersOnNewPDF(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	trigger, _, err := Watch(t.Context(), WatchConfig{Dir: dir, Debounce: 20 * time.Millisecond}, logger)
	require.NoError(t, err)

	touch(t, filepath.Join(dir, "notiz.txt"))
	touch(t, filepath.Join(dir, "rechnung.pdf"))
	touch(t, filepath.Join(dir, "rechnung2.pdf"))

	select {
	case <-trigger:
	case <-time.After(5 * time.Second):
		t.Fatal("no trigger for new pdf")
	}
}

func TestWatchInitialScan(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "liegt_schon.pdf"))
	trigger, _, err := Watch(t.Context(), WatchConfig{Dir: dir, InitialScan: true}, nil)
	require.NoError(t, err)

	select {
	case <-trigger:
	case <-time.After(time.Second):
		t.Fatal("initial scan did not trigger")
	}
}

func TestHelpers(t *testing.T) {
	assert.True(t, AllowedExt(".PDF"))
	assert.False(t, AllowedExt(".png"))
	assert.True(t, IsHidden("/x/.tmp-123"))
}
