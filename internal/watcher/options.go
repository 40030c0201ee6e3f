package watcher

import (
	"context"
	"time"

	"github.com/nholik/save-snapper/internal/healthcheck"
	"github.com/nholik/save-snapper/internal/metrics"
	"github.com/nholik/save-snapper/internal/notify"
	"github.com/nholik/save-snapper/internal/snapshot"
	"github.com/nholik/save-snapper/internal/state"
)

// Ticker is the minimal interface needed for driving the poll loop.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t timeTicker) Stop() {
	t.ticker.Stop()
}

// Option customizes watcher behavior.
type Option func(*Watcher)

// WithTickerFactory overrides how tickers are created.
func WithTickerFactory(factory func(time.Duration) Ticker) Option {
	return func(w *Watcher) {
		w.tickerFactory = factory
	}
}

// WithRunOnce overrides the single-cycle step used by Run.
func WithRunOnce(runOnce func(context.Context) error) Option {
	return func(w *Watcher) {
		w.runOnce = runOnce
	}
}

// WithCopier replaces the filesystem copier.
func WithCopier(copier snapshot.Copier) Option {
	return func(w *Watcher) {
		w.copier = copier
	}
}

// WithClock overrides the time source used for snapshot records.
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) {
		w.now = now
	}
}

// WithTrigger runs an extra cycle whenever ch receives.
func WithTrigger(ch <-chan struct{}) Option {
	return func(w *Watcher) {
		w.trigger = ch
	}
}

// WithMetrics records cycle and snapshot metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Watcher) {
		w.metrics = m
	}
}

// WithTracker reports cycle outcomes to the health endpoints.
func WithTracker(t *healthcheck.Tracker) Option {
	return func(w *Watcher) {
		w.tracker = t
	}
}

// WithLedger appends a record of every snapshot to store.
func WithLedger(store state.Store) Option {
	return func(w *Watcher) {
		w.ledger = store
	}
}

// WithNotifier announces every snapshot through n, bounded by timeout.
func WithNotifier(n notify.Notifier, timeout time.Duration) Option {
	return func(w *Watcher) {
		w.notifier = n
		if timeout > 0 {
			w.notifyTimeout = timeout
		}
	}
}
