// Package watch monitors event log files and re-runs analysis when they
// change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces rapid successive writes into one trigger.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors event log files and invokes OnChange after a file
// settles. A file counts as changed only when its size or modification
// time actually differ from the last trigger, so editors that rewrite
// in place without content changes stay quiet.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration

	mu    sync.Mutex
	files map[string]*watched

	OnChange func(path string) error
	OnError  func(path string, err error)
}

// watched is the per-file trigger state.
type watched struct {
	modTime    time.Time
	size       int64
	timer      *time.Timer
	processing bool
}

// NewWatcher creates a watcher with the default debounce.
func NewWatcher() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	return &Watcher{
		fsw:      fsw,
		debounce: DefaultDebounce,
		files:    make(map[string]*watched),
	}, nil
}

// SetDebounce overrides the settle delay. Must be called before Run.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Watch registers a file. The containing directory is watched because
// fsnotify loses track of files that are replaced by rename.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	stat, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	w.mu.Lock()
	w.files[abs] = &watched{modTime: stat.ModTime(), size: stat.Size()}
	w.mu.Unlock()

	if err := w.fsw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}
	return nil
}

// Paths returns the watched file paths, sorted.
func (w *Watcher) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.files))
	for p := range w.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Run blocks dispatching change triggers until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.fsw.Close()
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}

			w.mu.Lock()
			state, tracked := w.files[abs]
			if tracked {
				if state.timer != nil {
					state.timer.Stop()
				}
				state.timer = time.AfterFunc(w.debounce, func() {
					w.fire(abs, state)
				})
			}
			w.mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			if w.OnError != nil {
				w.OnError("", err)
			}
		}
	}
}

// fire re-checks the file after the debounce window and invokes
// OnChange when the content actually moved.
func (w *Watcher) fire(path string, state *watched) {
	w.mu.Lock()
	if state.processing {
		w.mu.Unlock()
		return
	}
	state.processing = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		state.processing = false
		w.mu.Unlock()
	}()

	stat, err := os.Stat(path)
	if err != nil {
		if w.OnError != nil {
			w.OnError(path, err)
		}
		return
	}

	w.mu.Lock()
	unchanged := stat.ModTime().Equal(state.modTime) && stat.Size() == state.size
	if !unchanged {
		state.modTime = stat.ModTime()
		state.size = stat.Size()
	}
	w.mu.Unlock()

	if unchanged {
		return
	}

	if w.OnChange != nil {
		if err := w.OnChange(path); err != nil && w.OnError != nil {
			w.OnError(path, err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
