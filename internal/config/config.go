// Package config defines job configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

// Default job tuning constants.
const (
	defaultBatchSize       = 500
	defaultMaxIncrement    = 100
	defaultMaxConcurrency  = 8
	defaultTransformFanout = 4
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DatabaseURL is the Postgres DSN for the score table.
	DatabaseURL string `koanf:"database_url"`

	// MetricsAddr optionally serves Prometheus metrics during a run,
	// e.g. ":9090". Empty disables the listener.
	MetricsAddr string `koanf:"metrics_addr"`

	// BatchSize is the number of rows fetched and written per batch.
	BatchSize int `koanf:"batch_size"`

	// MaxIncrement is the inclusive upper bound of the per-row score delta.
	MaxIncrement int `koanf:"max_increment"`

	// MaxConcurrency caps the number of batches in flight per wave.
	MaxConcurrency int `koanf:"max_concurrency"`

	// TransformFanout caps concurrent row transforms within one batch.
	TransformFanout int `koanf:"transform_fanout"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		DatabaseURL:     "postgres://localhost:5432/rescore?sslmode=disable",
		MetricsAddr:     "",
		BatchSize:       defaultBatchSize,
		MaxIncrement:    defaultMaxIncrement,
		MaxConcurrency:  defaultMaxConcurrency,
		TransformFanout: defaultTransformFanout,
	}
}
