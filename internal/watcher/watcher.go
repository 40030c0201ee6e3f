// Package watcher polls a save file and snapshots it whenever the in-game
// date changes.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nholik/save-snapper/internal/healthcheck"
	"github.com/nholik/save-snapper/internal/metrics"
	"github.com/nholik/save-snapper/internal/notify"
	"github.com/nholik/save-snapper/internal/savefile"
	"github.com/nholik/save-snapper/internal/snapshot"
	"github.com/nholik/save-snapper/internal/state"
	"github.com/rs/zerolog"
)

const defaultNotifyTimeout = 30 * time.Second

// Config holds the inputs a watcher is built from.
type Config struct {
	SavePath string
	// SnapshotDir defaults to the directory containing SavePath.
	SnapshotDir  string
	PollInterval time.Duration
}

// Watcher owns the poll loop for a single save file. It is not safe for
// concurrent use; Run executes every cycle on the calling goroutine.
type Watcher struct {
	logger      zerolog.Logger
	savePath    string
	snapshotDir string
	interval    time.Duration

	farmName string
	uniqueID string
	last     savefile.GameDate

	tickerFactory func(time.Duration) Ticker
	runOnce       func(context.Context) error
	copier        snapshot.Copier
	now           func() time.Time
	trigger       <-chan struct{}
	metrics       *metrics.Metrics
	tracker       *healthcheck.Tracker
	ledger        state.Store
	notifier      notify.Notifier
	notifyTimeout time.Duration
}

// New reads the save once to cache its identity. Any problem with the save
// file or the interval is returned as a *ConfigError.
func New(cfg Config, logger zerolog.Logger, opts ...Option) (*Watcher, error) {
	if cfg.SavePath == "" {
		return nil, &ConfigError{Path: cfg.SavePath, Err: errors.New("save file path is required")}
	}
	if cfg.PollInterval <= 0 {
		return nil, &ConfigError{Path: cfg.SavePath, Err: errors.New("poll interval must be greater than zero")}
	}

	info, err := os.Stat(cfg.SavePath)
	if err != nil {
		return nil, &ConfigError{Path: cfg.SavePath, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &ConfigError{Path: cfg.SavePath, Err: errors.New("not a regular file")}
	}

	save, err := savefile.Read(cfg.SavePath)
	if err != nil {
		return nil, &ConfigError{Path: cfg.SavePath, Err: err}
	}

	snapshotDir := cfg.SnapshotDir
	if snapshotDir == "" {
		snapshotDir = filepath.Dir(cfg.SavePath)
	}

	w := &Watcher{
		logger:      logger,
		savePath:    cfg.SavePath,
		snapshotDir: snapshotDir,
		interval:    cfg.PollInterval,
		farmName:    save.FarmName,
		uniqueID:    save.UniqueID,
		tickerFactory: func(d time.Duration) Ticker {
			return timeTicker{ticker: time.NewTicker(d)}
		},
		copier:        snapshot.NewFileCopier(snapshot.DefaultRetryPolicy),
		now:           func() time.Time { return time.Now().UTC() },
		notifyTimeout: defaultNotifyTimeout,
	}
	w.runOnce = w.defaultRunOnce

	for _, opt := range opts {
		opt(w)
	}

	w.logger.Info().
		Str("save", w.savePath).
		Dur("interval", w.interval).
		Str("snapshot_dir", w.snapshotDir).
		Str("farm", w.farmName).
		Str("unique_id", w.uniqueID).
		Msg("watching save for date changes")

	return w, nil
}

// LastDate returns the date of the last successful snapshot, or the zero
// date when none has been taken.
func (w *Watcher) LastDate() savefile.GameDate {
	return w.last
}

// CurrentDate re-parses the save file and returns its in-game date.
// Failures are returned as *ReadError.
func (w *Watcher) CurrentDate(ctx context.Context) (savefile.GameDate, error) {
	if err := ctx.Err(); err != nil {
		return savefile.GameDate{}, err
	}
	save, err := savefile.Read(w.savePath)
	if err != nil {
		return savefile.GameDate{}, &ReadError{Path: w.savePath, Err: err}
	}
	return save.Date, nil
}

// SnapshotPath returns where a snapshot for date is written.
func (w *Watcher) SnapshotPath(date savefile.GameDate) string {
	return filepath.Join(w.snapshotDir, snapshot.Name(w.farmName, w.uniqueID, date))
}

// TakeSnapshot copies the save file to its snapshot path for date. The last
// observed date only advances when the copy succeeds; failures are returned
// as *SnapshotError.
func (w *Watcher) TakeSnapshot(ctx context.Context, date savefile.GameDate) (snapshot.Record, error) {
	dst := w.SnapshotPath(date)

	info, err := w.copier.Copy(ctx, w.savePath, dst)
	if err != nil {
		return snapshot.Record{}, &SnapshotError{Path: dst, Err: err}
	}

	w.last = date

	rec := snapshot.Record{
		FarmName: w.farmName,
		UniqueID: w.uniqueID,
		Date:     date,
		Path:     dst,
		Size:     info.Size,
		ModTime:  info.ModTime,
		TakenAt:  w.now(),
	}

	w.logger.Info().
		Str("path", dst).
		Str("date", date.String()).
		Int64("bytes", info.Size).
		Msg("snapshot taken")

	w.metrics.RecordSnapshot(rec.TakenAt, rec.Size)
	w.tracker.RecordSnapshot(dst)
	w.afterSnapshot(ctx, rec)

	return rec, nil
}

// afterSnapshot runs the optional ledger and notification steps. Their
// failures are logged and never undo the snapshot.
func (w *Watcher) afterSnapshot(ctx context.Context, rec snapshot.Record) {
	if w.ledger != nil {
		if err := state.Append(ctx, w.ledger, rec); err != nil {
			w.logger.Warn().Err(err).Str("path", rec.Path).Msg("ledger update failed")
		}
	}

	if w.notifier != nil {
		notifyCtx, cancel := context.WithTimeout(ctx, w.notifyTimeout)
		defer cancel()
		if err := w.notifier.Notify(notifyCtx, rec); err != nil {
			w.metrics.IncNotifyErrors()
			w.logger.Warn().Err(err).Str("path", rec.Path).Msg("snapshot notification failed")
		}
	}
}

// Run polls until ctx is canceled. The first cycle runs immediately.
// Read and snapshot failures are logged and retried next cycle; any other
// error stops the loop and is returned.
func (w *Watcher) Run(ctx context.Context) error {
	if w.interval <= 0 {
		return errors.New("poll interval must be greater than zero")
	}

	if err := w.cycle(ctx); err != nil {
		return err
	}

	ticker := w.tickerFactory(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("watcher stopped")
			return nil
		case <-ticker.C():
			if err := w.cycle(ctx); err != nil {
				return err
			}
		case <-w.trigger:
			w.logger.Debug().Msg("save change detected, polling early")
			if err := w.cycle(ctx); err != nil {
				return err
			}
		}
	}
}

// RunOnce executes a single poll cycle.
func (w *Watcher) RunOnce(ctx context.Context) error {
	return w.runOnce(ctx)
}

// cycle runs one poll and decides whether its error ends the loop.
func (w *Watcher) cycle(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	err := w.RunOnce(ctx)
	if err == nil || ctx.Err() != nil {
		return nil
	}

	var readErr *ReadError
	var snapErr *SnapshotError
	switch {
	case errors.As(err, &readErr):
		w.logger.Warn().Err(err).Msg("save unreadable, skipping cycle")
		return nil
	case errors.As(err, &snapErr):
		w.logger.Warn().Err(err).Msg("snapshot failed, will retry next cycle")
		return nil
	default:
		w.logger.Error().Err(err).Msg("poll cycle failed")
		return fmt.Errorf("poll cycle: %w", err)
	}
}

func (w *Watcher) defaultRunOnce(ctx context.Context) error {
	start := time.Now()
	err := w.poll(ctx)
	duration := time.Since(start)

	w.metrics.ObserveCycleDuration(duration)
	w.tracker.RecordCycle(duration, err)

	return err
}

func (w *Watcher) poll(ctx context.Context) error {
	date, err := w.CurrentDate(ctx)
	if err != nil {
		var readErr *ReadError
		if errors.As(err, &readErr) {
			w.metrics.IncReadErrors()
		}
		return err
	}

	if date == w.last {
		w.logger.Debug().Str("date", date.String()).Msg("date unchanged")
		return nil
	}

	if _, err := w.TakeSnapshot(ctx, date); err != nil {
		w.metrics.IncSnapshotErrors()
		return err
	}
	return nil
}
