package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/renshu/internal/adapters/http/api"
	"github.com/okian/renshu/internal/adapters/repository"
	app "github.com/okian/renshu/internal/app"
	"github.com/okian/renshu/internal/config"
	"github.com/okian/renshu/internal/domain/dedupe"
	"github.com/okian/renshu/internal/domain/fingerprint"
	"github.com/okian/renshu/internal/domain/history"
	"github.com/okian/renshu/internal/domain/model"
	"github.com/okian/renshu/internal/domain/token"
	"github.com/okian/renshu/pkg/logger"
	"github.com/okian/renshu/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	connectTimeout    = 10 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Error(ctx, "failed to load config", logger.Error(err))
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Configure(metricsOptions(cfg)...)

	store, backend := openStore(ctx, cfg, log)

	svc := app.New(serviceOptions(cfg, backend, store, log)...)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	mux := http.NewServeMux()
	apiServer := api.NewServer(svc,
		api.WithCookieSecure(cfg.CookieSecure),
		api.WithMaxLimit(cfg.MaxHistoryLimit),
		api.WithLogger(log.Named("http")),
	)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// openStore builds the configured backend. An unreachable database is not
// fatal: the service runs without a backend and keeps history locally.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, string) {
	switch cfg.Backend {
	case config.BackendMemory:
		return repository.NewMemory(), config.BackendMemory
	case config.BackendPostgres:
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		db, err := repository.OpenPostgres(connectCtx, cfg.DatabaseDSN)
		if err != nil {
			log.Warn(ctx, "postgres unavailable; running without a backend", logger.Error(err))
			return nil, config.BackendNone
		}
		pg := repository.NewPostgres(db)
		if err := pg.InitSchema(connectCtx); err != nil {
			log.Warn(ctx, "could not initialize schema; running without a backend", logger.Error(err))
			_ = pg.Close()
			return nil, config.BackendNone
		}
		return pg, config.BackendPostgres
	default:
		return nil, config.BackendNone
	}
}

// serviceOptions maps configuration onto service options.
func serviceOptions(cfg *config.Config, backend string, store repository.Store, log logger.Logger) []app.Option {
	return []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithStore(backend, store),
		app.WithTokenOptions(
			token.WithSecret([]byte(cfg.TokenSecret)),
			token.WithTTL(cfg.TokenTTL()),
			token.WithLength(cfg.TokenLength),
		),
		app.WithFingerprintOptions(
			fingerprint.WithAppMarker(cfg.AppMarker),
			fingerprint.WithHistorySize(cfg.FingerprintHistory),
			fingerprint.WithStability(cfg.FingerprintWindow, cfg.FingerprintThreshold),
		),
		app.WithHistoryOptions(
			history.WithGeneration(model.Generation(cfg.SchemaGeneration)),
			history.WithCapacity(cfg.FallbackCapacity),
			history.WithTotalCapacity(cfg.FallbackTotalCapacity),
			history.WithTimeout(cfg.BackendTimeout()),
			history.WithProbeRetry(cfg.ProbeRetry()),
			history.WithDeduper(dedupe.New(dedupe.WithMaxSize(cfg.DedupeSize))),
		),
	}
}

// metricsOptions maps the metrics_* keys onto the metrics manager.
func metricsOptions(cfg *config.Config) []metrics.Option {
	return []metrics.Option{
		metrics.WithMetricPrefix(cfg.MetricsPrefix),
		metrics.WithCustomLabels(cfg.MetricLabels()),
		metrics.WithRefreshInterval(cfg.MetricsRefresh()),
	}
}

// startSystemMetricsUpdater refreshes process gauges until ctx ends.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
