package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	logpkg "github.com/corbtastik/incident-visualizer/pkg/log"
)

// DebounceInterval coalesces bursts of editor writes into one reload.
const DebounceInterval = 500 * time.Millisecond

// Watch reloads path after every write or create and passes the validated
// result to fn. Invalid files are logged and skipped. It blocks until ctx
// is done.
func Watch(ctx context.Context, path string, logger logpkg.Logger, fn func(Config)) error {
	if logger == nil {
		logger = logpkg.NewNop()
	}
	logger = logger.WithComponent("config")

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer w.Close()

	// Editors often replace the file, so watch the directory too.
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("config: watch %s: %w", dir, err)
	}
	target := filepath.Clean(path)

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			logger.Debug("config file changed", logpkg.Str("file", ev.Name), logpkg.Str("op", ev.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(DebounceInterval, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			cfg, err := Load(path)
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				logger.Error("config reload failed", logpkg.Str("file", path), logpkg.Err(err))
				continue
			}
			logger.Info("config reloaded", logpkg.Str("file", path))
			fn(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("config watcher error", logpkg.Err(err))
		}
	}
}
