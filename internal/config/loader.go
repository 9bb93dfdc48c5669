package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "GUESTRANK_"
	envConfig  = "GUESTRANK_CONFIG"
	keyDivider = "."
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. YAML file if GUESTRANK_CONFIG is set
//  3. env (prefix GUESTRANK_)
func Load() (*Config, error) {
	base := New()
	k := koanf.New(keyDivider)

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// GUESTRANK_BATCH_CONCURRENCY -> batch_concurrency (flat keys).
	envProvider := env.Provider(envPrefix, keyDivider, func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants the service relies on.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Store != StoreMemory && c.Store != StorePostgres:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	case c.Store == StorePostgres && strings.TrimSpace(c.DatabaseURL) == "":
		return fmt.Errorf("%w: database_url is required for the postgres store", ErrInvalidConfig)
	case c.CacheTTLDays <= 0:
		return fmt.Errorf("%w: cache_ttl_days must be positive", ErrInvalidConfig)
	case c.BatchConcurrency <= 0:
		return fmt.Errorf("%w: batch_concurrency must be positive", ErrInvalidConfig)
	case c.BatchTimeoutMS < 0:
		return fmt.Errorf("%w: batch_timeout_ms must not be negative", ErrInvalidConfig)
	case c.MaxBatchSize <= 0:
		return fmt.Errorf("%w: max_batch_size must be positive", ErrInvalidConfig)
	case c.ScoringLatencyMaxMS < c.ScoringLatencyMinMS:
		return fmt.Errorf("%w: scoring_latency_max_ms below scoring_latency_min_ms", ErrInvalidConfig)
	}
	return nil
}
