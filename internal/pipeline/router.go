package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/invoice-batch/constants"
)

// Folders are the per-run outcome directories.
type Folders struct {
	Archived         string
	NonInvoice       string
	Problem          string
	AlreadyProcessed string
}

// NewFolders lays out the outcome directories of a run below baseDir.
func NewFolders(baseDir, timestamp string) Folders {
	return Folders{
		Archived:         filepath.Join(baseDir, timestamp+constants.ArchivedDirSuffix),
		NonInvoice:       filepath.Join(baseDir, timestamp+constants.NonInvoiceDirSuffix),
		Problem:          filepath.Join(baseDir, timestamp+constants.ProblemDirSuffix),
		AlreadyProcessed: filepath.Join(baseDir, timestamp+constants.AlreadyProcessedDirSuffix),
	}
}

// For returns the directory that receives files with the given outcome.
func (f Folders) For(o constants.Outcome) (string, error) {
	switch o {
	case constants.OutcomeArchived:
		return f.Archived, nil
	case constants.OutcomeNonInvoice:
		return f.NonInvoice, nil
	case constants.OutcomeProblem:
		return f.Problem, nil
	case constants.OutcomeAlreadyProcessed:
		return f.AlreadyProcessed, nil
	}
	return "", fmt.Errorf("unknown outcome %q", o)
}

// Router moves input files into their outcome folder, creating folders on demand.
type Router struct {
	folders Folders
	logger  *slog.Logger
}

func NewRouter(folders Folders, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{folders: folders, logger: logger}
}

func (r *Router) Folders() Folders { return r.folders }

// Move relocates src into the outcome folder, prefixing the file name with prefix.
// An existing file at the destination is never overwritten; a numeric suffix is
// added instead.
func (r *Router) Move(src string, outcome constants.Outcome, prefix string) (string, error) {
	dir, err := r.folders.For(outcome)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	dest := uniquePath(filepath.Join(dir, sanitizePrefix(prefix)+filepath.Base(src)))

	if err := os.Rename(src, dest); err != nil {
		// cross-device moves fall back to copy + remove
		if cErr := copyFile(src, dest); cErr != nil {
			return "", fmt.Errorf("move %s: %w", filepath.Base(src), errors.Join(err, cErr))
		}
		if rmErr := os.Remove(src); rmErr != nil {
			r.logger.Warn("pipeline.route.remove_source_error", "src", src, "error", rmErr)
		}
	}
	r.logger.Info("pipeline.route.moved", "file", filepath.Base(src), "outcome", outcome, "dest", dest)
	return dest, nil
}

func sanitizePrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	replacer := strings.NewReplacer("/", "-", `\`, "-", " ", "_")
	return replacer.Replace(prefix)
}

func uniquePath(path string) string {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
	}
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return err
	}
	return out.Close()
}
