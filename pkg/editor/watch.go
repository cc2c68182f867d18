package editor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce groups the burst of events an editor emits on save.
const DefaultDebounce = 100 * time.Millisecond

// Watch reloads the buffer from path whenever the file changes, until ctx is
// done. The parent directory is watched so that editors which save by
// renaming a temporary file are still observed.
func (b *Buffer) Watch(ctx context.Context, path string, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", absPath, err)
	}
	b.logger.Debug("watching source file", "path", absPath)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.After(debounce)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			b.logger.Error("file watcher error", "error", err)

		case <-pending:
			pending = nil
			if err := b.LoadFile(absPath); err != nil {
				// The file may be mid-rename; the next event retries.
				b.logger.Warn("failed to reload source", "path", absPath, "error", err)
				continue
			}
			b.logger.Info("source reloaded", "path", absPath)
		}
	}
}
