package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if RESCORE_CONFIG is set
//  3. env (prefix RESCORE_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("RESCORE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: RESCORE_DATABASE_URL, RESCORE_BATCH_SIZE, ...
	// Map env keys like RESCORE_BATCH_SIZE -> batch_size (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("RESCORE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "rescore_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate enforces the bounds the scheduler assumes.
func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%w: database_url must not be empty", ErrInvalidConfig)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be positive", ErrInvalidConfig)
	}
	if c.MaxIncrement < 0 {
		return fmt.Errorf("%w: max_increment must not be negative", ErrInvalidConfig)
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("%w: max_concurrency must be positive", ErrInvalidConfig)
	}
	if c.TransformFanout <= 0 {
		return fmt.Errorf("%w: transform_fanout must be positive", ErrInvalidConfig)
	}
	return nil
}
