package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zombor/invoice-manager/internal/recognition"
)

// DefaultDebounce is how long a file must be quiet before it is processed
const DefaultDebounce = 500 * time.Millisecond

// Watcher processes images dropped into a directory
type Watcher struct {
	dir      string
	handler  Handler
	debounce time.Duration
}

// NewWatcher creates a Watcher for dir. A non-positive debounce uses
// DefaultDebounce.
func NewWatcher(dir string, handler Handler, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{dir: dir, handler: handler, debounce: debounce}
}

// wanted reports whether path is an image that should be processed
func wanted(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, sidecarSuffix) {
		return false
	}
	return recognition.Supported(name)
}

func processed(path string) bool {
	_, err := os.Stat(SidecarPath(path))
	return err == nil
}

// Run watches until ctx is cancelled. Images already in the directory
// without a sidecar are processed first.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("creating inbox: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	slog.Info("Watching inbox", "dir", w.dir)

	pending := make(map[string]time.Time)

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("reading inbox: %w", err)
	}
	now := time.Now()
	for _, e := range entries {
		path := filepath.Join(w.dir, e.Name())
		if e.Type().IsRegular() && wanted(path) && !processed(path) {
			pending[path] = now
		}
	}

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopped watching inbox", "dir", w.dir)
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				if wanted(event.Name) {
					pending[event.Name] = time.Now()
				}
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				delete(pending, event.Name)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Inbox watcher error", "error", err)

		case <-ticker.C:
			for path, last := range pending {
				if time.Since(last) < w.debounce {
					continue
				}
				delete(pending, path)
				w.process(path)
				if ctx.Err() != nil {
					break
				}
			}
		}
	}
}

func (w *Watcher) process(path string) {
	sidecar, err := w.handler.Process(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		slog.Error("Failed to process inbox file", "path", path, "error", err)
		return
	}
	slog.Info("Processed inbox file", "path", path, "fields", sidecar.Fields.Keys())
}
