package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/arashn/taskqueue/internal/config"
	"github.com/arashn/taskqueue/internal/observability"
	"github.com/arashn/taskqueue/internal/queue"
	"github.com/arashn/taskqueue/internal/store/postgres"
	"github.com/arashn/taskqueue/internal/worker"
)

// workerFlagDefaults loads the env layer for the worker subcommand's flag
// defaults: runWorker starts from spec.md §6's literal values and replaces
// them with envCfg's values when envCfg is non-nil. envCfg is nil, and
// every TASKQUEUE_* var is ignored, unless TASKQUEUE_DB_URL is set, since
// LoadWorkerConfig fails without it. This lets a purely env-driven deployment
// (container orchestration setting TASKQUEUE_DB_URL and friends, no CLI
// flags at all) run unmodified, while an operator passing explicit flags
// still wins — flag.Parse always applies an explicit value over its
// default.
func workerFlagDefaults() (serviceName string, envCfg *config.WorkerConfig) {
	envCfg, _ = config.LoadWorkerConfig()
	serviceName = "taskqueue-worker"
	if envCfg != nil && envCfg.Observability.OTelServiceName != "" {
		serviceName = envCfg.Observability.OTelServiceName
	}
	return serviceName, envCfg
}

func runWorker(ctx context.Context, args []string) error {
	serviceName, envCfg := workerFlagDefaults()

	defaultDBURL := ""
	defaultConcurrency := 1
	defaultPollInterval := 1.0
	defaultWorkerID := ""
	defaultMaxRetries := 3
	defaultBaseRetryDelay := 5.0
	defaultLockTimeout := 600.0
	defaultOTel := false
	if envCfg != nil {
		defaultDBURL = envCfg.Database.URL
		defaultConcurrency = envCfg.Concurrency
		defaultPollInterval = envCfg.PollInterval.Seconds()
		defaultWorkerID = envCfg.WorkerID
		defaultMaxRetries = envCfg.DefaultMaxRetries
		defaultBaseRetryDelay = envCfg.BaseRetryDelay.Seconds()
		defaultLockTimeout = envCfg.LockTimeout.Seconds()
		defaultOTel = envCfg.Observability.OTelEnabled
	}

	fs := flag.NewFlagSet("worker", flag.ExitOnError)
	dbURL := fs.String("db-url", defaultDBURL, "PostgreSQL connection URL (defaults to TASKQUEUE_DB_URL, falls back to DATABASE_URL)")
	taskModule := fs.String("task-module", "", "task handler module to load (informational; handlers are compiled in)")
	concurrency := fs.Int("concurrency", defaultConcurrency, "maximum in-flight handler executions")
	pollInterval := fs.Float64("poll-interval", defaultPollInterval, "seconds between claim scans")
	workerID := fs.String("worker-id", defaultWorkerID, "stable worker identifier (generated if empty)")
	maxRetries := fs.Int("max-retries", defaultMaxRetries, "default max_retries for submitted tasks")
	baseRetryDelay := fs.Float64("base-retry-delay", defaultBaseRetryDelay, "base retry backoff delay in seconds")
	lockTimeout := fs.Float64("lock-timeout", defaultLockTimeout, "claim lease duration in seconds")
	otelEnabled := fs.Bool("otel", defaultOTel, "enable OTLP tracing/metrics/logging export")
	if err := fs.Parse(args); err != nil {
		return err
	}
	_ = taskModule

	url, err := resolveDBURL(*dbURL)
	if err != nil {
		return err
	}

	id := *workerID
	if id == "" {
		generated, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate worker id: %w", err)
		}
		id = generated.String()
	}

	_, logger, err := observability.InitLogger(ctx, serviceName, *otelEnabled)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	slog.SetDefault(logger)

	if _, err := observability.InitTracerProvider(ctx, serviceName, *otelEnabled); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if _, err := observability.InitMeterProvider(ctx, serviceName, *otelEnabled); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	st, err := postgres.Open(ctx, postgres.Config{DSN: url})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	q := queue.New(st, queue.Defaults{MaxRetries: *maxRetries})
	if err := registerHandlers(q); err != nil {
		return fmt.Errorf("failed to register handlers: %w", err)
	}

	cfg := worker.Config{
		WorkerID:        id,
		Concurrency:     *concurrency,
		PollInterval:    parseDuration(*pollInterval),
		LockDuration:    parseDuration(*lockTimeout),
		BaseRetryDelay:  parseDuration(*baseRetryDelay),
		RetryMultiplier: 2.0,
	}
	w := worker.New(st, q.Registry(), cfg)

	slog.InfoContext(ctx, "worker starting", "worker_id", id, "concurrency", *concurrency)
	err = w.Run(ctx)
	if err != nil && ctx.Err() != nil {
		slog.InfoContext(ctx, "worker stopped", "reason", ctx.Err())
		return nil
	}
	return err
}
