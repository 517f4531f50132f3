package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchSettleDelay is how long a recording must go without filesystem
// events before it is considered fully written and safe to upload.
// Recorders write .mcap files incrementally; uploading on the first
// Create event would ship a truncated file.
const watchSettleDelay = 2 * time.Second

// watchTickInterval is how often the watch loop re-checks pending files
// for settlement.
const watchTickInterval = 500 * time.Millisecond

// FsWatcher abstracts filesystem event monitoring. Satisfied by
// *fsnotify.Watcher via fsnotifyWrapper; tests inject a mock.
type FsWatcher interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

// fsnotifyWrapper adapts *fsnotify.Watcher to the FsWatcher interface.
// fsnotify exposes Events and Errors as public fields, not methods.
type fsnotifyWrapper struct {
	w *fsnotify.Watcher
}

func (fw *fsnotifyWrapper) Add(name string) error         { return fw.w.Add(name) }
func (fw *fsnotifyWrapper) Close() error                  { return fw.w.Close() }
func (fw *fsnotifyWrapper) Events() <-chan fsnotify.Event { return fw.w.Events }
func (fw *fsnotifyWrapper) Errors() <-chan error          { return fw.w.Errors }

func newFsWatcher() (FsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &fsnotifyWrapper{w: w}, nil
}

// addWatchesRecursive walks root and adds a watch on every directory.
// A failure on the root itself is fatal; failures deeper in the tree are
// logged and skipped so one unreadable subdirectory doesn't kill the
// whole watch.
func addWatchesRecursive(watcher FsWatcher, root string, logger *slog.Logger) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}

			logger.Warn("walk error during watch setup",
				slog.String("path", path), slog.String("error", walkErr.Error()))

			return nil
		}

		if !d.IsDir() {
			return nil
		}

		if addErr := watcher.Add(path); addErr != nil {
			logger.Warn("failed to add watch",
				slog.String("path", path), slog.String("error", addErr.Error()))
		}

		return nil
	})
}

// folderWatcher turns raw filesystem events into settled batches of
// recording paths: a file only flushes once it has been quiet for the
// settle delay.
type folderWatcher struct {
	logger *slog.Logger
	settle time.Duration
	tick   time.Duration
	now    func() time.Time
}

func newFolderWatcher(logger *slog.Logger) *folderWatcher {
	return &folderWatcher{
		logger: logger,
		settle: watchSettleDelay,
		tick:   watchTickInterval,
		now:    time.Now,
	}
}

// run blocks until ctx is canceled or the watcher's channels close,
// invoking flush with each settled batch of recording paths. flush runs
// on the loop's goroutine, so a long upload naturally throttles how fast
// new batches form (fsnotify buffers events meanwhile).
func (fw *folderWatcher) run(ctx context.Context, watcher FsWatcher, flush func([]string)) error {
	pending := make(map[string]time.Time)

	ticker := time.NewTicker(fw.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}

			fw.observe(watcher, pending, ev)

		case err, ok := <-watcher.Errors():
			if !ok {
				return nil
			}

			fw.logger.Warn("watch error", slog.String("error", err.Error()))

		case <-ticker.C:
			if batch := settledPaths(pending, fw.now(), fw.settle); len(batch) > 0 {
				flush(batch)
			}
		}
	}
}

// observe classifies one filesystem event: new directories get watches of
// their own, new or rewritten .mcap files (re)start their settle clock,
// removed or renamed paths drop out of pending.
func (fw *folderWatcher) observe(watcher FsWatcher, pending map[string]time.Time, ev fsnotify.Event) {
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		delete(pending, ev.Name)
		return
	}

	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}

	if info.IsDir() {
		if ev.Has(fsnotify.Create) {
			if addErr := watcher.Add(ev.Name); addErr != nil {
				fw.logger.Warn("failed to add watch",
					slog.String("path", ev.Name), slog.String("error", addErr.Error()))
			}
		}

		return
	}

	if !strings.EqualFold(filepath.Ext(ev.Name), ".mcap") {
		return
	}

	pending[ev.Name] = fw.now()
}

// settledPaths removes and returns every pending path whose last event is
// at least settle old, sorted for deterministic batch order.
func settledPaths(pending map[string]time.Time, now time.Time, settle time.Duration) []string {
	var out []string

	for path, last := range pending {
		if now.Sub(last) >= settle {
			out = append(out, path)
			delete(pending, path)
		}
	}

	sort.Strings(out)

	return out
}
