// Package config defines service configuration and its defaults.
//
// Values are layered by Load: defaults from New, then an optional YAML file,
// then GUESTRANK_* environment variables.
package config

import (
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// CORSOrigins is a comma separated list of browser origins allowed to call
	// the API. Empty disables CORS headers.
	CORSOrigins string `koanf:"cors_origins"`

	// Store selects the metadata and guest store backend: memory or postgres.
	Store string `koanf:"store"`
	// DatabaseURL is the Postgres DSN used when Store is postgres.
	DatabaseURL string `koanf:"database_url"`
	// DatabaseMaxConns caps the pgx pool size.
	DatabaseMaxConns int `koanf:"database_max_conns"`

	// CacheTTLDays is the maximum age of a cached score.
	CacheTTLDays int `koanf:"cache_ttl_days"`
	// InflightDedupe collapses concurrent recomputations of the same guest.
	InflightDedupe bool `koanf:"inflight_dedupe"`

	// BatchConcurrency bounds parallel scorer calls within one batch.
	BatchConcurrency int `koanf:"batch_concurrency"`
	// BatchTimeoutMS bounds a whole batch; 0 disables the timeout.
	BatchTimeoutMS int `koanf:"batch_timeout_ms"`
	// MaxBatchSize rejects batch requests with more guests.
	MaxBatchSize int `koanf:"max_batch_size"`

	// QueueSize bounds the background refresh queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of background refresh workers.
	WorkerCount int `koanf:"worker_count"`

	// ScoringLatencyMinMS and ScoringLatencyMaxMS simulate external scorer latency.
	ScoringLatencyMinMS int `koanf:"scoring_latency_min_ms"`
	ScoringLatencyMaxMS int `koanf:"scoring_latency_max_ms"`

	// TitleWeights maps job-title keywords to score contributions.
	TitleWeights map[string]float64 `koanf:"title_weights"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		Store:               StoreMemory,
		DatabaseMaxConns:    10,
		CacheTTLDays:        30,
		InflightDedupe:      true,
		BatchConcurrency:    5,
		BatchTimeoutMS:      60_000,
		MaxBatchSize:        1_000,
		QueueSize:           10_000,
		WorkerCount:         4,
		ScoringLatencyMinMS: 20,
		ScoringLatencyMaxMS: 60,
		TitleWeights: map[string]float64{
			"ceo":       40,
			"founder":   35,
			"president": 35,
			"chief":     30,
			"vp":        25,
			"director":  20,
			"head":      18,
			"manager":   10,
		},
	}
}

// CacheTTL returns the configured TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLDays) * 24 * time.Hour
}

// BatchTimeout returns the configured batch timeout; zero means none.
func (c *Config) BatchTimeout() time.Duration {
	return time.Duration(c.BatchTimeoutMS) * time.Millisecond
}

// AllowedOrigins splits CORSOrigins into trimmed, non-empty origins.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
