package repository

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Option applies a configuration option to the pgx pool config.
type Option func(*pgxpool.Config)

// WithMaxConns caps the connection pool size. Each in-flight batch
// transaction holds one connection, so this should be at least the
// scheduler's wave concurrency.
func WithMaxConns(n int32) Option {
	return func(cfg *pgxpool.Config) {
		if n > 0 {
			cfg.MaxConns = n
		}
	}
}

// WithConnectTimeout bounds how long establishing a connection may take.
func WithConnectTimeout(d time.Duration) Option {
	return func(cfg *pgxpool.Config) {
		if d > 0 {
			cfg.ConnConfig.ConnectTimeout = d
		}
	}
}
