package config

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher signals when the settings file changes on disk, so toggling a
// setting outside the TUI triggers a rebuild. Rapid successive writes
// (editors write-then-rename) are debounced into one signal.
type Watcher struct {
	store    *Watchable
	fs       *fsnotify.Watcher
	changed  chan struct{}
	debounce time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// Watchable is the slice of Store the watcher needs.
type Watchable struct {
	Dir    string
	Reload func() error
}

// NewWatcher builds a watcher over the store's settings directory.
func NewWatcher(store *Store) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		store:    &Watchable{Dir: store.Dir(), Reload: store.Reload},
		fs:       fs,
		changed:  make(chan struct{}, 1),
		debounce: 200 * time.Millisecond,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start begins watching. The settings directory must exist.
func (w *Watcher) Start() error {
	if err := w.fs.Add(w.store.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.store.Dir, err)
	}
	go w.loop()
	return nil
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() {
	w.cancel()
	w.fs.Close()
}

// Changed returns the signal channel. At most one signal is buffered;
// consumers that are mid-rebuild see a single coalesced notification.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

func (w *Watcher) loop() {
	var last time.Time
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			now := time.Now()
			if now.Sub(last) < w.debounce {
				continue
			}
			last = now

			if err := w.store.Reload(); err != nil {
				// Half-written file; the next event will retry.
				continue
			}
			select {
			case w.changed <- struct{}{}:
			default:
			}

		case _, ok := <-w.fs.Errors:
			if !ok {
				return
			}
		}
	}
}
