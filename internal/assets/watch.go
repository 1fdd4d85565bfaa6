package assets

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch watches layout.Root (and every subdirectory under it) for
// changes and invokes onChange whenever a template, fragment, or style
// file is written, created, removed, or renamed. It is a dev-mode
// convenience only: Catalogue is populated once at startup and read
// concurrently afterwards (see the package doc comment), so Watch does
// not reload or mutate a live Catalogue itself — onChange is expected
// to log the change or trigger an external process restart, mirroring
// how config.Watch hot-reloads config but leaves the decision to act on
// the caller.
//
// Watch blocks until ctx is cancelled or the underlying watcher fails
// to start.
func Watch(ctx context.Context, layout Layout, logger *slog.Logger, onChange func(event fsnotify.Event)) error {
	if layout.Root == "" {
		return fmt.Errorf("assets: Watch requires a non-empty Layout.Root")
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("assets: creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, layout.Root); err != nil {
		return fmt.Errorf("assets: watching %s: %w", layout.Root, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						logger.Warn("assets watcher: failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			logger.Info("docs asset tree changed", "path", event.Name, "op", event.Op.String())
			onChange(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("assets watcher error", "error", err)
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
