package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type DirStats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
}

// ListInput returns the allowed, non-hidden files directly inside root, sorted by
// name. Subdirectories are not descended into; a missing root yields no files.
func ListInput(root string) ([]string, DirStats, error) {
	var stats DirStats
	if strings.TrimSpace(root) == "" {
		return nil, stats, errors.New("input directory is required")
	}
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, stats, nil
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			return filepath.SkipDir
		}
		stats.Scanned++
		if IsHidden(path) || !AllowedExt(filepath.Ext(path)) || !d.Type().IsRegular() {
			stats.Skipped++
			return nil
		}
		stats.Matched++
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, stats, nil
}
