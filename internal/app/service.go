// Package service wires stores, the scorer and the importance analyzers into
// the operations exposed over HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	refreshqueue "github.com/okian/guestrank/internal/adapters/mq/queue"
	workerpool "github.com/okian/guestrank/internal/adapters/mq/worker"
	"github.com/okian/guestrank/internal/adapters/repository"
	"github.com/okian/guestrank/internal/config"
	"github.com/okian/guestrank/internal/domain/cache"
	"github.com/okian/guestrank/internal/domain/importance"
	"github.com/okian/guestrank/internal/domain/model"
	"github.com/okian/guestrank/internal/domain/scoring"
	"github.com/okian/guestrank/pkg/logger"
	"github.com/okian/guestrank/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

// Service implements the API dependencies for guest importance scoring.
type Service struct {
	// lifecycle serializes Start and Stop; mu guards state.
	lifecycle sync.Mutex
	mu        sync.RWMutex

	// Core components
	store    repository.Store
	scorer   scoring.Scorer
	analyzer *importance.Analyzer
	batch    *importance.BatchAnalyzer
	queue    refreshqueue.Queue
	pool     *workerpool.Pool

	// Configuration
	backend           string
	databaseURL       string
	databaseMaxConns  int
	ownsStore         bool
	now               func() time.Time
	cacheTTLDays      int
	inflightDedupe    bool
	batchConcurrency  int
	batchTimeout      time.Duration
	maxBatchSize      int
	queueSize         int
	workerCount       int
	scoringMinLatency time.Duration
	scoringMaxLatency time.Duration
	titleWeights      map[string]float64

	// State
	started   bool
	startedAt time.Time

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		backend:           config.StoreMemory,
		databaseMaxConns:  10,
		ownsStore:         true,
		now:               time.Now,
		cacheTTLDays:      cache.DefaultTTLDays,
		inflightDedupe:    true,
		batchConcurrency:  importance.DefaultBatchConcurrency,
		batchTimeout:      time.Minute,
		maxBatchSize:      1000,
		queueSize:         10_000,
		workerCount:       4,
		scoringMinLatency: 20 * time.Millisecond,
		scoringMaxLatency: 60 * time.Millisecond,
		logger:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the store, scorer, analyzers and refresh workers.
func (s *Service) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting importance service", logger.String("store", s.backend))

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return err
		}
		s.store = store
	}

	if s.scorer == nil {
		scorerOpts := []scoring.Option{scoring.WithLatencyRange(s.scoringMinLatency, s.scoringMaxLatency)}
		if len(s.titleWeights) > 0 {
			scorerOpts = append(scorerOpts, scoring.WithTitleWeights(s.titleWeights))
		}
		s.scorer = scoring.NewInMemoryScorer(scorerOpts...)
	}

	policy := cache.NewPolicy(cache.WithTTLDays(s.cacheTTLDays), cache.WithClock(s.now))
	s.analyzer = importance.NewAnalyzer(s.store, s.scorer,
		importance.WithPolicy(policy),
		importance.WithClock(s.now),
		importance.WithInflightDedupe(s.inflightDedupe),
		importance.WithLogger(s.logger.Named("analyzer")),
	)
	s.batch = importance.NewBatchAnalyzer(s.analyzer,
		importance.WithConcurrency(s.batchConcurrency),
		importance.WithBatchTimeout(s.batchTimeout),
		importance.WithBatchLogger(s.logger.Named("batch")),
	)

	s.queue = refreshqueue.NewInMemoryQueue(refreshqueue.WithCapacity(s.queueSize))
	// Workers outlive the Start context; Stop ends them.
	s.pool = workerpool.NewPool(s.workerCount, s.queue, workerpool.RefreshFunc(s.refresh),
		workerpool.WithLogger(s.logger.Named("refresh")),
	)
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "importance service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("cache_ttl_days", s.cacheTTLDays),
		logger.Int("batch_concurrency", s.batchConcurrency),
		logger.Bool("inflight_dedupe", s.inflightDedupe),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.backend {
	case config.StoreMemory:
		return repository.NewMemoryStore(), nil
	case config.StorePostgres:
		store, err := repository.OpenPostgres(ctx, s.databaseURL,
			repository.WithMaxConns(int32(s.databaseMaxConns)), //nolint:gosec // bounded by config validation
			repository.WithLogger(s.logger.Named("postgres")),
		)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, s.backend)
	}
}

// Stop drains the refresh queue and releases the store. Queued jobs keep
// running against the live service until the queue is empty or ctx ends.
func (s *Service) Stop(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.RLock()
	started, pool := s.started, s.pool
	s.mu.RUnlock()
	if !started {
		return nil
	}
	s.logger.Info(ctx, "stopping importance service")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if err := pool.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownsStore && s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		s.store = nil
	}
	s.started = false
	s.logger.Info(ctx, "importance service stopped")
	return errors.Join(errs...)
}

func (s *Service) components() (repository.Store, *importance.Analyzer, *importance.BatchAnalyzer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, nil, ErrNotStarted
	}
	return s.store, s.analyzer, s.batch, nil
}

// AnalyzeGuest scores a stored guest, optionally in the context of an event.
func (s *Service) AnalyzeGuest(ctx context.Context, guestID, eventID string, force bool) (importance.ScoreResult, error) {
	store, analyzer, _, err := s.components()
	if err != nil {
		return importance.ScoreResult{}, err
	}

	guest, event, err := s.resolve(ctx, store, guestID, eventID)
	if err != nil {
		return importance.ScoreResult{}, err
	}
	return analyzer.AnalyzeGuest(ctx, importance.Request{Guest: guest, Event: event, ForceRefresh: force})
}

// AnalyzeGuests scores caller-supplied guests.
func (s *Service) AnalyzeGuests(ctx context.Context, guests []model.Guest, force bool) (importance.BatchResult, error) {
	_, _, batch, err := s.components()
	if err != nil {
		return importance.BatchResult{}, err
	}
	if len(guests) > s.maxBatchSize {
		return importance.BatchResult{}, fmt.Errorf("%w: batch of %d guests exceeds limit of %d",
			importance.ErrValidation, len(guests), s.maxBatchSize)
	}
	return batch.AnalyzeGuests(ctx, guests, importance.BatchOptions{ForceRefresh: force}), nil
}

// AnalyzeOrganization scores every stored guest of an organization.
func (s *Service) AnalyzeOrganization(ctx context.Context, organizationID string, force bool) (importance.BatchResult, error) {
	store, _, batch, err := s.components()
	if err != nil {
		return importance.BatchResult{}, err
	}
	if strings.TrimSpace(organizationID) == "" {
		return importance.BatchResult{}, fmt.Errorf("%w: organization id is required", importance.ErrValidation)
	}

	guests, err := store.ListGuests(ctx, organizationID)
	if err != nil {
		return importance.BatchResult{}, fmt.Errorf("%w: list guests of %s: %w", importance.ErrStore, organizationID, err)
	}
	if len(guests) > s.maxBatchSize {
		return importance.BatchResult{}, fmt.Errorf("%w: organization has %d guests, limit is %d",
			importance.ErrValidation, len(guests), s.maxBatchSize)
	}
	return batch.AnalyzeGuests(ctx, guests, importance.BatchOptions{ForceRefresh: force}), nil
}

// EnqueueRefresh queues background re-analysis of guests. Full-queue
// rejections are reported per guest rather than failing the whole call.
func (s *Service) EnqueueRefresh(ctx context.Context, guestIDs []string, eventID string, force bool) (model.RefreshReceipt, error) {
	s.mu.RLock()
	q, started := s.queue, s.started
	s.mu.RUnlock()
	if !started {
		return model.RefreshReceipt{}, ErrNotStarted
	}

	receipt := model.RefreshReceipt{Accepted: []model.RefreshAccepted{}, Rejected: []model.RefreshRejected{}}
	for _, id := range guestIDs {
		if strings.TrimSpace(id) == "" {
			receipt.Rejected = append(receipt.Rejected, model.RefreshRejected{GuestID: id, Reason: "guest id is required"})
			continue
		}
		job := model.RefreshJob{
			ID:           uuid.NewString(),
			GuestID:      id,
			EventID:      eventID,
			ForceRefresh: force,
			RequestedAt:  s.now().UTC(),
		}
		err := q.Enqueue(ctx, job)
		switch {
		case err == nil:
			receipt.Accepted = append(receipt.Accepted, model.RefreshAccepted{JobID: job.ID, GuestID: id})
		case errors.Is(err, refreshqueue.ErrClosed):
			return receipt, ErrQueueClosed
		default:
			receipt.Rejected = append(receipt.Rejected, model.RefreshRejected{GuestID: id, Reason: err.Error()})
		}
	}
	return receipt, nil
}

// EnqueueOrganizationRefresh queues re-analysis of every stored guest of an
// organization.
func (s *Service) EnqueueOrganizationRefresh(ctx context.Context, organizationID, eventID string, force bool) (model.RefreshReceipt, error) {
	store, _, _, err := s.components()
	if err != nil {
		return model.RefreshReceipt{}, err
	}
	if strings.TrimSpace(organizationID) == "" {
		return model.RefreshReceipt{}, fmt.Errorf("%w: organization id is required", importance.ErrValidation)
	}
	guests, err := store.ListGuests(ctx, organizationID)
	if err != nil {
		return model.RefreshReceipt{}, fmt.Errorf("%w: list guests of %s: %w", importance.ErrStore, organizationID, err)
	}
	ids := make([]string, len(guests))
	for i, g := range guests {
		ids[i] = g.ID
	}
	return s.EnqueueRefresh(ctx, ids, eventID, force)
}

// refresh is the worker entry point for one queued job.
func (s *Service) refresh(ctx context.Context, job model.RefreshJob) error {
	_, err := s.AnalyzeGuest(ctx, job.GuestID, job.EventID, job.ForceRefresh)
	return err
}

// UpsertGuest creates or replaces a guest in the directory.
func (s *Service) UpsertGuest(ctx context.Context, guest model.Guest) error {
	store, _, _, err := s.components()
	if err != nil {
		return err
	}
	if err := store.UpsertGuest(ctx, guest); err != nil {
		return storeError("upsert guest", err)
	}
	return nil
}

// UpsertEvent creates or replaces an event.
func (s *Service) UpsertEvent(ctx context.Context, event model.Event) error {
	store, _, _, err := s.components()
	if err != nil {
		return err
	}
	if err := store.UpsertEvent(ctx, event); err != nil {
		return storeError("upsert event", err)
	}
	return nil
}

// GetGuest returns a stored guest.
func (s *Service) GetGuest(ctx context.Context, guestID string) (model.Guest, error) {
	store, _, _, err := s.components()
	if err != nil {
		return model.Guest{}, err
	}
	g, err := store.GetGuest(ctx, guestID)
	if err != nil {
		return model.Guest{}, storeError("get guest "+guestID, err)
	}
	return g, nil
}

func (s *Service) resolve(ctx context.Context, store repository.Store, guestID, eventID string) (model.Guest, *model.Event, error) {
	if strings.TrimSpace(guestID) == "" {
		return model.Guest{}, nil, fmt.Errorf("%w: guest id is required", importance.ErrValidation)
	}
	guest, err := store.GetGuest(ctx, guestID)
	if err != nil {
		return model.Guest{}, nil, storeError("get guest "+guestID, err)
	}
	if eventID == "" {
		return guest, nil, nil
	}
	event, err := store.GetEvent(ctx, eventID)
	if err != nil {
		return model.Guest{}, nil, storeError("get event "+eventID, err)
	}
	return guest, &event, nil
}

func storeError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s: %w", op, importance.ErrNotFound)
	case errors.Is(err, repository.ErrInvalidRecord):
		return fmt.Errorf("%s: %w: %w", op, importance.ErrValidation, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, importance.ErrStore, err)
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) (model.ServiceStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := model.ServiceStats{
		Started:        s.started,
		Store:          s.backend,
		CacheTTLDays:   s.cacheTTLDays,
		InflightDedupe: s.inflightDedupe,
	}
	if !s.started {
		return st, nil
	}

	counts, err := s.store.Stats(ctx)
	if err != nil {
		return st, storeError("stats", err)
	}
	st.UptimeSeconds = s.now().Sub(s.startedAt).Seconds()
	st.Guests, st.Events, st.Scored = counts.Guests, counts.Events, counts.Scored
	st.QueueLength, st.QueueCapacity = s.queue.Len(), s.queue.Cap()
	st.Workers = s.pool.Size()
	st.JobsProcessed, st.JobsFailed = s.pool.Processed(), s.pool.Failed()

	metrics.UpdateQueue(st.QueueLength, st.QueueCapacity)
	return st, nil
}

// Ready reports whether the service can serve requests.
func (s *Service) Ready(ctx context.Context) error {
	store, _, _, err := s.components()
	if err != nil {
		return err
	}
	if _, err := store.Stats(ctx); err != nil {
		return storeError("readiness", err)
	}
	return nil
}
