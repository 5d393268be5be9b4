package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"leadscout/internal/errors"
	"leadscout/internal/logger"
)

const watchDebounce = 500 * time.Millisecond

// Watch calls onReload with the freshly loaded config each time the file at
// path changes, until ctx is done. Bursts of events are coalesced. A file
// that fails to load is logged and the previous config stays in effect.
//
// The directory is watched rather than the file because SaveAtomic and most
// editors replace the file by rename.
func Watch(ctx context.Context, path string, log *zap.Logger, onReload func(Config)) error {
	log = logger.OrNop(log).Named("config")

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create config watcher")
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "watch %s", filepath.Dir(path))
	}
	base := filepath.Base(path)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			timer.Reset(watchDebounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", zap.Error(err))

		case <-timer.C:
			cfg, err := Load(path)
			if err != nil {
				log.Error("config reload failed", zap.String("path", path), zap.Error(err))
				continue
			}
			log.Info("config reloaded", zap.String("path", path))
			onReload(cfg)
		}
	}
}
