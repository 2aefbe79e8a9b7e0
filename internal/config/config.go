// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and PRIZEBOARD_* env vars over the defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Dedupe backends.
const (
	DedupeMemory = "memory"
	DedupeRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects persistence: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`

	// DatabaseURL is the DSN for sqlite or postgres.
	DatabaseURL string `koanf:"database_url"`

	// DBMaxOpenConns bounds the SQL pool. Zero keeps the driver default
	// (one connection for sqlite).
	DBMaxOpenConns int `koanf:"db_max_open_conns"`

	// DBConnMaxLifetime recycles pooled SQL connections. Zero never recycles.
	DBConnMaxLifetime time.Duration `koanf:"db_conn_max_lifetime"`

	// QueueSize bounds the in-memory settlement queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of settlement workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeBackend selects where in-flight settlements are tracked.
	DedupeBackend string `koanf:"dedupe_backend"`

	// DedupeSize bounds the in-memory deduper.
	DedupeSize int `koanf:"dedupe_size"`

	// RedisURL is used when DedupeBackend is redis, e.g. redis://localhost:6379/0.
	RedisURL string `koanf:"redis_url"`

	// RedisKeyPrefix namespaces in-flight keys when several deployments
	// share one Redis.
	RedisKeyPrefix string `koanf:"redis_key_prefix"`

	// JobTimeout bounds the settlement of a single contest.
	JobTimeout time.Duration `koanf:"job_timeout"`

	// SettlementInterval is how often ended contests are queued. Zero disables it.
	SettlementInterval time.Duration `koanf:"settlement_interval"`

	// MaxLeaderboardLimit caps GET /contests/{id}/leaderboards/{kind}?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// MetricsNamespace and MetricsSubsystem prefix every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsBuckets overrides the latency histogram buckets: comma separated
	// milliseconds such as "1,5,25,100". Empty keeps the Prometheus defaults.
	MetricsBuckets string `koanf:"metrics_buckets"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		StoreDriver:         StoreMemory,
		QueueSize:           1024,
		WorkerCount:         runtime.NumCPU(),
		DedupeBackend:       DedupeMemory,
		DedupeSize:          10_000,
		RedisKeyPrefix:      "prizeboard:settling:",
		JobTimeout:          2 * time.Minute,
		SettlementInterval:  time.Minute,
		MaxLeaderboardLimit: 100,
		MetricsNamespace:    "prizeboard",
		MetricsSubsystem:    "service",
	}
}

// Validate checks field combinations.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite, StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for %s", ErrInvalidConfig, c.StoreDriver)
		}
	default:
		return fmt.Errorf("%w: store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	switch c.DedupeBackend {
	case DedupeMemory:
	case DedupeRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: redis_url is required for redis dedupe", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: dedupe_backend %q", ErrInvalidConfig, c.DedupeBackend)
	}
	if c.QueueSize <= 0 || c.WorkerCount <= 0 || c.DedupeSize <= 0 || c.MaxLeaderboardLimit <= 0 {
		return fmt.Errorf("%w: queue_size, worker_count, dedupe_size and max_leaderboard_limit must be positive", ErrInvalidConfig)
	}
	if c.SettlementInterval < 0 {
		return fmt.Errorf("%w: settlement_interval must not be negative", ErrInvalidConfig)
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("%w: job_timeout must be positive", ErrInvalidConfig)
	}
	if c.DBMaxOpenConns < 0 || c.DBConnMaxLifetime < 0 {
		return fmt.Errorf("%w: db_max_open_conns and db_conn_max_lifetime must not be negative", ErrInvalidConfig)
	}
	if _, err := c.HistogramBuckets(); err != nil {
		return err
	}
	return nil
}

// HistogramBuckets parses MetricsBuckets. The result is nil when unset.
func (c *Config) HistogramBuckets() ([]float64, error) {
	if strings.TrimSpace(c.MetricsBuckets) == "" {
		return nil, nil
	}
	parts := strings.Split(c.MetricsBuckets, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		b, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: metrics_buckets %q: %w", ErrInvalidConfig, c.MetricsBuckets, err)
		}
		if len(out) > 0 && b <= out[len(out)-1] {
			return nil, fmt.Errorf("%w: metrics_buckets must be strictly increasing", ErrInvalidConfig)
		}
		out = append(out, b)
	}
	return out, nil
}
