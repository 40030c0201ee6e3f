package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/nholik/save-snapper/internal/config"
	"github.com/nholik/save-snapper/internal/healthcheck"
	"github.com/nholik/save-snapper/internal/logging"
	"github.com/nholik/save-snapper/internal/metrics"
	"github.com/nholik/save-snapper/internal/notify"
	"github.com/nholik/save-snapper/internal/server"
	"github.com/nholik/save-snapper/internal/state"
	"github.com/nholik/save-snapper/internal/trigger"
	"github.com/nholik/save-snapper/internal/watcher"
	"github.com/rs/zerolog"
)

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	cfg, err := config.Load(args)
	if err != nil {
		var usageErr *config.UsageError
		switch {
		case errors.Is(err, config.ErrHelp):
			fmt.Fprint(stderr, config.Usage)
			return exitOK
		case errors.As(err, &usageErr):
			fmt.Fprintf(stderr, "save-snapper: %v\n\n%s", err, config.Usage)
			return exitUsage
		default:
			fmt.Fprintf(stderr, "save-snapper: %v\n", err)
			return exitFatal
		}
	}

	logger := logging.NewWithLevel(cfg.LogLevel)

	m := metrics.New()
	tracker := healthcheck.NewTracker()
	opts := []watcher.Option{
		watcher.WithMetrics(m),
		watcher.WithTracker(tracker),
	}

	notifier, err := buildNotifier(logger, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "save-snapper: %v\n", err)
		return exitFatal
	}
	if notifier != nil {
		opts = append(opts, watcher.WithNotifier(notifier, 0))
	}

	if cfg.LedgerPath != "" {
		opts = append(opts, watcher.WithLedger(state.NewFileStore(cfg.LedgerPath, logger)))
	}

	if cfg.WatchMode == config.WatchModeNotify {
		trig, err := trigger.New(cfg.SavePath, trigger.DefaultDebounce, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("file change trigger unavailable, polling only")
		} else {
			defer trig.Close()
			go trig.Run(ctx)
			opts = append(opts, watcher.WithTrigger(trig.C()))
		}
	}

	w, err := watcher.New(watcher.Config{
		SavePath:     cfg.SavePath,
		SnapshotDir:  cfg.SnapshotDir,
		PollInterval: cfg.PollInterval,
	}, logger, opts...)
	if err != nil {
		fmt.Fprintf(stderr, "save-snapper: %v\n", err)
		return exitFatal
	}

	server.Start(ctx, logger, server.Options{
		HealthPort:   cfg.HealthPort,
		MetricsPort:  cfg.MetricsPort,
		PollInterval: cfg.PollInterval,
		Tracker:      tracker,
		Metrics:      m,
	})

	if err := w.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("watcher exited")
		return exitFatal
	}
	return exitOK
}

func buildNotifier(logger zerolog.Logger, cfg config.Config) (notify.Notifier, error) {
	var notifiers []notify.Notifier

	webhook, err := notify.NewWebhookNotifier(logger, cfg.WebhookURL, cfg.WebhookTemplate, notify.DefaultTiming)
	if err != nil {
		return nil, err
	}
	if webhook != nil {
		notifiers = append(notifiers, webhook)
	}
	if cfg.SlackWebhookURL != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(logger, cfg.SlackWebhookURL, notify.DefaultTiming))
	}

	multi := notify.NewMultiNotifier(notifiers...)
	if cfg.DryRun {
		return notify.NewDryRunNotifier(logger, multi), nil
	}
	if multi.Len() == 0 {
		return nil, nil
	}
	return multi, nil
}
