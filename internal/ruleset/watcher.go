package ruleset

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/davidbz/tollbooth/internal/observability"
)

const defaultDebounce = 200 * time.Millisecond

// Invalidator is the part of Loader the watcher drives.
type Invalidator interface {
	ClearCache(serviceID string)
}

// Watcher invalidates cached documents when files in the rules directory
// change. Editors often write through temp files and renames, so the whole
// directory is watched rather than individual files.
type Watcher struct {
	dir      string
	loader   Invalidator
	onChange func(serviceID string)
	debounce time.Duration

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher creates a watcher for dir. onChange, when not nil, runs after
// each invalidation; it is used to drop the engines' strategy caches.
func NewWatcher(dir string, loader Invalidator, onChange func(serviceID string)) (*Watcher, error) {
	if dir == "" {
		return nil, errors.New("rules directory cannot be empty")
	}
	if loader == nil {
		return nil, errors.New("loader cannot be nil")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err = fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}

	return &Watcher{
		dir:      dir,
		loader:   loader,
		onChange: onChange,
		debounce: defaultDebounce,
		watcher:  fw,
		pending:  make(map[string]*time.Timer),
	}, nil
}

// SetDebounce changes the delay used to coalesce bursts of events per file.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	logger := observability.FromContext(ctx)
	logger.Info("rules watcher started", observability.String("dir", w.dir))

	defer w.stopTimers()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			serviceID, isRuleFile := ServiceIDFromPath(event.Name)
			if !isRuleFile {
				continue
			}

			logger.Debug("rules file event",
				observability.String("op", event.Op.String()),
				observability.String("file", event.Name))

			w.schedule(ctx, serviceID)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("rules watcher error", observability.Error(err))

		case <-ctx.Done():
			logger.Info("rules watcher stopped")
			return
		}
	}
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) schedule(ctx context.Context, serviceID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[serviceID]; ok {
		timer.Stop()
	}

	w.pending[serviceID] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, serviceID)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}

		w.loader.ClearCache(serviceID)
		if w.onChange != nil {
			w.onChange(serviceID)
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, timer := range w.pending {
		timer.Stop()
		delete(w.pending, id)
	}
}
