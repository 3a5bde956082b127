package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 250 * time.Millisecond

// Watcher reloads the config file when it changes on disk.
type Watcher struct {
	filePath string
	store    *Store
	onChange func(ctx context.Context, cfg Config) error
}

func NewWatcher(filePath string, store *Store, onChange func(ctx context.Context, cfg Config) error) Watcher {
	return Watcher{
		filePath: filepath.Clean(filePath),
		store:    store,
		onChange: onChange,
	}
}

func (w Watcher) String() string {
	return "config.Watcher"
}

func (w Watcher) Serve(ctx context.Context) error {
	slog := slog.With("package", "config", "file", w.filePath)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer watcher.Close()

	// Editors replace files on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(w.filePath)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("config watcher closed")
			}
			if filepath.Clean(event.Name) != w.filePath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					<-timerC
				}
				timer.Reset(watchDebounce)
			}
		case <-timerC:
			timer, timerC = nil, nil

			cfg, err := w.store.GetConfig()
			if err != nil {
				slog.Error("Failed to reload config", "error", err)
				continue
			}
			if err := w.onChange(ctx, cfg); err != nil {
				slog.Error("Failed to apply config", "error", err)
				continue
			}
			slog.Info("Reloaded config")
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("config watcher closed")
			}
			slog.Warn("Config watcher error", "error", err)
		}
	}
}
