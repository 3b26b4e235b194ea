package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/rescore/internal/adapters/repository"
	"github.com/okian/rescore/internal/config"
	"github.com/okian/rescore/internal/domain/transform"
	"github.com/okian/rescore/internal/job"
	"github.com/okian/rescore/pkg/logger"
	"github.com/okian/rescore/pkg/metrics"
)

// HTTP server timeout constants for the optional metrics listener.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
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
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Each in-flight batch holds one connection for its transaction; one
	// extra covers the count and page reads.
	store, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL,
		repository.WithMaxConns(int32(cfg.MaxConcurrency)+1),
		repository.WithConnectTimeout(connectTimeout),
	)
	if err != nil {
		os.Stderr.WriteString("failed to connect to store: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer store.Close()

	// Optional metrics listener for scraping while the run is in flight.
	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr, loggerInstance)
	}

	transformer := transform.NewDeltaTransformer(
		transform.WithMaxIncrement(cfg.MaxIncrement),
	)

	runner := job.New(store, transformer,
		job.WithBatchSize(cfg.BatchSize),
		job.WithMaxConcurrency(cfg.MaxConcurrency),
		job.WithTransformFanout(cfg.TransformFanout),
		job.WithLogger(loggerInstance),
	)

	result, err := runner.Run(ctx)
	if err != nil {
		loggerInstance.Error(ctx, "run failed",
			logger.Int("failed_batches", result.Failed()),
			logger.Error(err),
		)
		store.Close()
		os.Exit(1)
	}

	loggerInstance.Info(ctx, "run complete",
		logger.Int64("total_rows", result.TotalRows),
		logger.Int("batches", result.Batches),
		logger.Int64("elapsed_seconds", result.ElapsedSeconds),
	)
}

// serveMetrics exposes the Prometheus registry until ctx is cancelled.
func serveMetrics(ctx context.Context, addr string, log logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	log.Info(ctx, "serving metrics", logger.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Warn(ctx, "metrics listener failed", logger.Error(err))
	}
}
