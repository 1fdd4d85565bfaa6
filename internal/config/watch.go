package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config file at path whenever it changes on disk,
// invoking onReload with the newly loaded Config. It blocks until ctx
// is cancelled or the underlying watcher fails to start. A reload
// failure (bad TOML, a failed Validate) is logged and does not replace
// the previously loaded config.
func Watch(ctx context.Context, path string, logger *slog.Logger, onReload func(*Config)) error {
	if path == "" {
		return fmt.Errorf("config: Watch requires a non-empty path")
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("config: watching %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				logger.Warn("config reload failed, keeping previous config", "path", path, "error", err)
				continue
			}
			logger.Info("config reloaded", "path", path)
			onReload(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		}
	}
}
