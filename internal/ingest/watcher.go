package ingest

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Dir         string        // input directory, not watched recursively
	InitialScan bool          // emit one trigger right away if the directory holds input
	Debounce    time.Duration // coalesce bursts of copies into one trigger, default 2s
}

// Watch emits a trigger whenever allowed files land in the input directory. Bursts
// within the debounce window collapse into a single trigger; triggers never queue up
// beyond one, so a slow consumer sees at most one pending run.
func Watch(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan struct{}, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, nil, errors.New("no directory to watch")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("ingest.watch.create_error", "error", err)
		return nil, nil, err
	}
	if err := w.Add(cfg.Dir); err != nil {
		logger.Error("ingest.watch.add_error", "dir", cfg.Dir, "error", err)
		_ = w.Close()
		return nil, nil, err
	}

	trigger := make(chan struct{}, 1)
	errCh := make(chan error, 1)
	// files moved out of the directory also raise events; fire only while input is pending
	fire := func() {
		if files, _, err := ListInput(cfg.Dir); err != nil || len(files) == 0 {
			return
		}
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	if cfg.InitialScan {
		fire()
	}

	go func() {
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("ingest.watch.close_error", "error", err)
			}
		}()

		var (
			mu    sync.Mutex
			timer *time.Timer
		)
		defer func() {
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if IsHidden(e.Name) || !AllowedExt(filepath.Ext(e.Name)) {
					continue
				}
				if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				logger.Debug("ingest.watch.event", "file", e.Name, "op", e.Op.String())
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(cfg.Debounce, fire)
				mu.Unlock()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("ingest.watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return trigger, errCh, nil
}
