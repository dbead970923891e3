// Package config loads process configuration from the environment using
// internal/env's reflection-tag loader, then fills defaults in code — the
// working pattern the teacher's LoadWorkerConfig itself falls back on,
// since internal/env.Load never applies struct-tag defaults itself.
package config

import (
	"fmt"
	"time"

	"github.com/arashn/taskqueue/internal/env"
)

// DatabaseConfig holds PostgreSQL connection settings shared by every
// subcommand that opens the store.
type DatabaseConfig struct {
	URL             string        `env:"TASKQUEUE_DB_URL"`
	MaxOpenConns    int           `env:"TASKQUEUE_DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `env:"TASKQUEUE_DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `env:"TASKQUEUE_DB_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `env:"TASKQUEUE_DB_CONN_MAX_IDLE_TIME"`
}

// ObservabilityConfig toggles OTLP export, grounded on the teacher's own
// observability config struct.
type ObservabilityConfig struct {
	OTelEnabled     bool   `env:"TASKQUEUE_OTEL_ENABLED"`
	OTelServiceName string `env:"TASKQUEUE_OTEL_SERVICE_NAME"`
}

// ArchiveConfig enables cold-storage export of terminal rows to GCS.
type ArchiveConfig struct {
	Enabled bool   `env:"TASKQUEUE_ARCHIVE_ENABLED"`
	Bucket  string `env:"TASKQUEUE_ARCHIVE_BUCKET"`
}

// WorkerConfig holds the worker loop's tunables, field names chosen after
// spec.md §6's configuration-defaults table.
type WorkerConfig struct {
	Database           DatabaseConfig
	WorkerID           string        `env:"TASKQUEUE_WORKER_ID"`
	Concurrency        int           `env:"TASKQUEUE_CONCURRENCY"`
	PollInterval       time.Duration `env:"TASKQUEUE_POLL_INTERVAL"`
	LockTimeout        time.Duration `env:"TASKQUEUE_LOCK_TIMEOUT"`
	DefaultMaxRetries  int           `env:"TASKQUEUE_MAX_RETRIES"`
	BaseRetryDelay     time.Duration `env:"TASKQUEUE_BASE_RETRY_DELAY"`
	RetryBackoffFactor float64       `env:"TASKQUEUE_RETRY_BACKOFF_MULTIPLIER"`
	DefaultTimeout     time.Duration `env:"TASKQUEUE_DEFAULT_TASK_TIMEOUT"`
	Observability      ObservabilityConfig
	Archive            ArchiveConfig
}

// DashboardConfig holds the read-only HTTP dashboard's listen address.
type DashboardConfig struct {
	Database      DatabaseConfig
	Addr          string `env:"TASKQUEUE_DASHBOARD_ADDR"`
	Observability ObservabilityConfig
}

// LoadWorkerConfig loads worker configuration from the environment and
// fills defaults for every field left unset.
func LoadWorkerConfig() (*WorkerConfig, error) {
	cfg := &WorkerConfig{}
	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load worker config: %w", err)
	}
	applyDatabaseDefaults(&cfg.Database)

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 600 * time.Second
	}
	if cfg.DefaultMaxRetries <= 0 {
		cfg.DefaultMaxRetries = 3
	}
	if cfg.BaseRetryDelay <= 0 {
		cfg.BaseRetryDelay = 5 * time.Second
	}
	if cfg.RetryBackoffFactor <= 0 {
		cfg.RetryBackoffFactor = 2.0
	}
	if cfg.Observability.OTelServiceName == "" {
		cfg.Observability.OTelServiceName = "taskqueue-worker"
	}

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("TASKQUEUE_DB_URL is required")
	}
	return cfg, nil
}

// LoadDashboardConfig loads the dashboard's configuration from the
// environment.
func LoadDashboardConfig() (*DashboardConfig, error) {
	cfg := &DashboardConfig{}
	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load dashboard config: %w", err)
	}
	applyDatabaseDefaults(&cfg.Database)

	if cfg.Addr == "" {
		cfg.Addr = ":8090"
	}
	if cfg.Observability.OTelServiceName == "" {
		cfg.Observability.OTelServiceName = "taskqueue-dashboard"
	}
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("TASKQUEUE_DB_URL is required")
	}
	return cfg, nil
}

func applyDatabaseDefaults(db *DatabaseConfig) {
	if db.ConnMaxLifetime <= 0 {
		db.ConnMaxLifetime = 5 * time.Minute
	}
	if db.ConnMaxIdleTime <= 0 {
		db.ConnMaxIdleTime = time.Minute
	}
}
