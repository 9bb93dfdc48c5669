package service

import (
	"time"

	"github.com/okian/guestrank/internal/adapters/repository"
	"github.com/okian/guestrank/internal/config"
	"github.com/okian/guestrank/internal/domain/scoring"
	"github.com/okian/guestrank/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects a ready store. Start then skips backend selection and
// Stop does not close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
			s.ownsStore = false
		}
	}
}

// WithBackend selects the store backend by name ("memory" or "postgres").
func WithBackend(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.backend = name
		}
	}
}

// WithPostgres selects the Postgres backend.
func WithPostgres(url string, maxConns int) Option {
	return func(s *Service) {
		s.backend = config.StorePostgres
		s.databaseURL = url
		if maxConns > 0 {
			s.databaseMaxConns = maxConns
		}
	}
}

// WithScorer injects the scorer. Defaults to the in-memory heuristic scorer.
func WithScorer(scorer scoring.Scorer) Option {
	return func(s *Service) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithClock replaces time.Now for score stamps and staleness checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCacheTTLDays sets how long a computed score stays fresh.
func WithCacheTTLDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.cacheTTLDays = days
		}
	}
}

// WithInflightDedupe toggles collapsing of concurrent identical analyses.
func WithInflightDedupe(enabled bool) Option {
	return func(s *Service) {
		s.inflightDedupe = enabled
	}
}

// WithBatchConcurrency bounds concurrent analyses per batch.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// WithBatchTimeout caps the wall time of one batch.
func WithBatchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.batchTimeout = d
		}
	}
}

// WithMaxBatchSize rejects batches larger than n guests.
func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// WithQueueSize sets the refresh queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of refresh workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithScoringLatencyRange sets the simulated scorer latency range.
func WithScoringLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *Service) {
		if minLatency >= 0 && maxLatency >= minLatency {
			s.scoringMinLatency = minLatency
			s.scoringMaxLatency = maxLatency
		}
	}
}

// WithTitleWeights sets the job title keyword weights of the default scorer.
func WithTitleWeights(weights map[string]float64) Option {
	return func(s *Service) {
		if len(weights) > 0 {
			s.titleWeights = weights
		}
	}
}

// OptionsFromConfig maps loaded configuration onto service options.
func OptionsFromConfig(cfg *config.Config) []Option {
	opts := []Option{
		WithBackend(cfg.Store),
		WithCacheTTLDays(cfg.CacheTTLDays),
		WithInflightDedupe(cfg.InflightDedupe),
		WithBatchConcurrency(cfg.BatchConcurrency),
		WithBatchTimeout(cfg.BatchTimeout()),
		WithMaxBatchSize(cfg.MaxBatchSize),
		WithQueueSize(cfg.QueueSize),
		WithWorkerCount(cfg.WorkerCount),
		WithScoringLatencyRange(
			time.Duration(cfg.ScoringLatencyMinMS)*time.Millisecond,
			time.Duration(cfg.ScoringLatencyMaxMS)*time.Millisecond,
		),
		WithTitleWeights(cfg.TitleWeights),
	}
	if cfg.Store == config.StorePostgres {
		opts = append(opts, WithPostgres(cfg.DatabaseURL, cfg.DatabaseMaxConns))
	}
	return opts
}
