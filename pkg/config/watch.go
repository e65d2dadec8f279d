package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 200 * time.Millisecond

// Watch blocks and reloads settings whenever the file changes, invoking
// onChange with each successfully reloaded state. Editors replace files via
// rename, so the parent directory is watched and events are debounced.
// Returns when ctx is done.
func (l *Loader) Watch(ctx context.Context, onChange func(*Settings)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(l.path), err)
	}

	timer := time.NewTimer(24 * time.Hour)
	defer timer.Stop()
	stopTimer := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}
	stopTimer()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != l.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			stopTimer()
			timer.Reset(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("settings watch error", "error", err)
		case <-timer.C:
			s, err := l.Reload()
			if err != nil {
				slog.Warn("settings reload failed", "path", l.path, "error", err)
				continue
			}
			if onChange != nil {
				onChange(s)
			}
		}
	}
}
