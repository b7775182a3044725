package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher notifies a callback with a fresh Frozen snapshot whenever the
// config file changes on disk. Snapshots only apply to commands that start
// after the change; in-flight commands keep the snapshot they began with.
type Watcher struct {
	path     string
	onChange func(*Frozen)
	logger   *slog.Logger

	// debounce coalesces editor write storms into one reload.
	debounce time.Duration
}

// NewWatcher creates a watcher for the given config file. onChange is called
// with each successfully loaded and frozen snapshot; load failures are
// logged and skipped so a half-written file never produces a bad snapshot.
func NewWatcher(path string, onChange func(*Frozen)) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		logger:   slog.Default().With("component", "config.watcher"),
		debounce: 200 * time.Millisecond,
	}
}

// Run watches until the context is cancelled. It watches the parent
// directory rather than the file itself so atomic-rename saves keep working.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fs watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watching %q: %w", dir, err)
	}

	var pending *time.Timer
	var pendingC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if pending == nil {
				pending = time.NewTimer(w.debounce)
				pendingC = pending.C
			} else {
				pending.Reset(w.debounce)
			}

		case <-pendingC:
			pending = nil
			pendingC = nil
			w.reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watch error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("ignoring config change", "path", w.path, "error", err)
		return
	}
	frozen, err := Freeze(cfg)
	if err != nil {
		w.logger.Warn("ignoring config change", "path", w.path, "error", err)
		return
	}
	w.logger.Info("configuration reloaded", "path", w.path)
	w.onChange(frozen)
}
