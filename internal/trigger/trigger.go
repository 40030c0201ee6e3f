// Package trigger wakes the poll loop early when the save file is rewritten.
package trigger

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce absorbs the burst of events a single game save produces.
const DefaultDebounce = 2 * time.Second

// Trigger signals on C after the watched file settles following a change.
type Trigger struct {
	path     string
	debounce time.Duration
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	ch       chan struct{}

	closeOnce sync.Once
}

// New watches the directory containing path. Only events for path itself fire.
func New(path string, debounce time.Duration, logger zerolog.Logger) (*Trigger, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Trigger{
		path:     filepath.Clean(path),
		debounce: debounce,
		logger:   logger,
		watcher:  w,
		ch:       make(chan struct{}, 1),
	}, nil
}

// C delivers at most one pending signal at a time.
func (t *Trigger) C() <-chan struct{} {
	return t.ch
}

// Run forwards debounced events until ctx is canceled or the watcher closes.
func (t *Trigger) Run(ctx context.Context) {
	defer t.Close()

	timer := time.NewTimer(t.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if !t.relevant(ev) {
				continue
			}
			t.logger.Debug().Str("name", ev.Name).Str("op", ev.Op.String()).Msg("save file event")
			timer.Reset(t.debounce)

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			t.logger.Warn().Err(err).Msg("fsnotify error")

		case <-timer.C:
			select {
			case t.ch <- struct{}{}:
			default:
			}
		}
	}
}

// Close stops the underlying watcher.
func (t *Trigger) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.watcher.Close()
	})
	return err
}

func (t *Trigger) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != t.path {
		return false
	}
	return ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}
