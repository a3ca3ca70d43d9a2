package file

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceDuration collapses bursts of filesystem events into one signal.
var DebounceDuration = 100 * time.Millisecond

// Watch implements ports.Watchable. It watches the deck's directory rather
// than the file itself so atomic renames keep being observed.
func (s *Store) Watch(ctx context.Context) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	dir := filepath.Dir(s.Path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.Path)
	out := make(chan string, 1)
	go func() {
		defer close(out)
		defer w.Close()

		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename) {
					pending = time.After(DebounceDuration)
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			case <-pending:
				pending = nil
				select {
				case out <- target:
				default:
				}
			}
		}
	}()
	return out, nil
}
