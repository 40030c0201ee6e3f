package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nholik/save-snapper/internal/healthcheck"
	"github.com/nholik/save-snapper/internal/metrics"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

// Options selects which endpoints are served and where. A zero port disables
// that endpoint.
type Options struct {
	HealthPort   int
	MetricsPort  int
	PollInterval time.Duration
	Tracker      *healthcheck.Tracker
	Metrics      *metrics.Metrics
}

// Start launches the health and metrics HTTP servers described by opts.
// Servers shut down when ctx is canceled.
func Start(ctx context.Context, logger zerolog.Logger, opts Options) {
	if opts.HealthPort == 0 && opts.MetricsPort == 0 {
		return
	}

	if opts.HealthPort > 0 && opts.HealthPort == opts.MetricsPort {
		mux := http.NewServeMux()
		registerHealthRoutes(mux, opts)
		registerMetricsRoute(mux, opts)
		startServer(ctx, logger, mux, opts.HealthPort, "health/metrics")
		return
	}

	if opts.HealthPort > 0 {
		mux := http.NewServeMux()
		registerHealthRoutes(mux, opts)
		startServer(ctx, logger, mux, opts.HealthPort, "health")
	}

	if opts.MetricsPort > 0 {
		mux := http.NewServeMux()
		registerMetricsRoute(mux, opts)
		startServer(ctx, logger, mux, opts.MetricsPort, "metrics")
	}
}

// Handler returns a mux carrying every route, regardless of ports.
func Handler(opts Options) http.Handler {
	mux := http.NewServeMux()
	registerHealthRoutes(mux, opts)
	registerMetricsRoute(mux, opts)
	return mux
}

func registerHealthRoutes(mux *http.ServeMux, opts Options) {
	mux.HandleFunc("/healthz", healthcheck.HealthHandler(opts.Tracker, opts.PollInterval))
	mux.HandleFunc("/readyz", healthcheck.ReadyHandler(opts.Tracker))
}

func registerMetricsRoute(mux *http.ServeMux, opts Options) {
	if opts.Metrics == nil {
		return
	}
	mux.Handle("/metrics", opts.Metrics.Handler())
}

func startServer(ctx context.Context, logger zerolog.Logger, handler http.Handler, port int, label string) {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("server", label).Int("port", port).Msg("http server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("server", label).Int("port", port).Msg("http server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Str("server", label).Int("port", port).Msg("http server shutdown failed")
		}
	}()
}
