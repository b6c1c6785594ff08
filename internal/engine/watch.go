package engine

// watch.go - re-run the pipeline when session files change

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mixsense-labs/mixsense/internal/dataset"
	"github.com/mixsense-labs/mixsense/internal/state"
)

// watchDebounce coalesces bursts of filesystem events into one run.
const watchDebounce = 500 * time.Millisecond

// Watch re-runs the pipeline whenever session files under the data
// directory change. onRun is invoked after every triggered run. Watch
// blocks until the context is canceled.
func (e *Engine) Watch(ctx context.Context, selectors []string, onRun func(*state.Run, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := addWatchTree(watcher, e.dataDir); err != nil {
		return err
	}

	e.logger.Info("watching for changes", "data_dir", e.dataDir)

	var debounce *time.Timer
	trigger := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				// New session directories need their own watch.
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addWatchTree(watcher, event.Name)
				}
			}
			if !isSessionFile(event.Name) {
				continue
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Rename) {
				e.logger.Debug("change detected", "file", event.Name, "op", event.Op.String())
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(watchDebounce, func() {
					select {
					case trigger <- struct{}{}:
					default:
					}
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Error("watch error", "error", err)

		case <-trigger:
			// Rescan so new sessions are picked up.
			if _, err := e.Discover(); err != nil {
				e.logger.Error("rescan failed", "error", err)
				continue
			}
			run, err := e.Run(ctx, selectors)
			if onRun != nil {
				onRun(run, err)
			}
		}
	}
}

// addWatchTree registers a directory and all its subdirectories.
func addWatchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Directories can vanish mid-walk while sessions are
			// being rewritten; skip rather than abort.
			return nil
		}
		if d.IsDir() {
			_ = watcher.Add(path)
		}
		return nil
	})
}

func isSessionFile(path string) bool {
	base := filepath.Base(path)
	return strings.EqualFold(base, dataset.DataFileName) || strings.EqualFold(base, dataset.LabelsFileName)
}
