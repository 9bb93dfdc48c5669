// Package importance orchestrates cached importance scoring for guests.
//
// Analyzer handles one guest: fingerprint, cache check, TTL check, and on a
// miss a scorer call followed by a single metadata upsert. BatchAnalyzer fans
// Analyzer out over many guests with per-guest failure isolation.
package importance

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/guestrank/internal/domain/cache"
	"github.com/okian/guestrank/internal/domain/fingerprint"
	"github.com/okian/guestrank/internal/domain/model"
	"github.com/okian/guestrank/internal/domain/scoring"
	"github.com/okian/guestrank/pkg/logger"
	"github.com/okian/guestrank/pkg/metrics"
)

// Reason explains how a ScoreResult was produced.
type Reason string

const (
	ReasonHit     Reason = "hit"
	ReasonMissing Reason = "missing"
	ReasonChanged Reason = "changed"
	ReasonExpired Reason = "expired"
	ReasonForced  Reason = "forced"
)

// MetadataStore reads and upserts cached score metadata.
type MetadataStore interface {
	cache.MetadataReader
	// PutMetadata replaces the record for meta.GuestID in a single write.
	PutMetadata(ctx context.Context, meta model.ScoreMetadata) error
}

// Request asks for the importance score of one guest.
type Request struct {
	Guest        model.Guest
	Event        *model.Event
	ForceRefresh bool
}

// ScoreResult is the importance score served to callers.
type ScoreResult struct {
	GuestID      string          `json:"guest_id"`
	Score        float64         `json:"score"`
	Breakdown    model.Breakdown `json:"breakdown,omitempty"`
	DataHash     string          `json:"data_hash"`
	CalculatedAt time.Time       `json:"calculated_at"`
	Cached       bool            `json:"cached"`
	Reason       Reason          `json:"reason"`
}

// Option applies a configuration option to the Analyzer.
type Option func(*Analyzer)

// WithPolicy sets the staleness policy. Defaults to a 30 day TTL.
func WithPolicy(p *cache.Policy) Option {
	return func(a *Analyzer) {
		if p != nil {
			a.policy = p
		}
	}
}

// WithClock replaces time.Now for calculatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithInflightDedupe toggles collapsing of concurrent identical analyses.
// When disabled, concurrent recomputations of one guest each write and the
// last write wins.
func WithInflightDedupe(enabled bool) Option {
	return func(a *Analyzer) {
		a.dedupe = enabled
	}
}

// WithInflightTimeout bounds a shared computation after it is detached from
// its callers.
func WithInflightTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.flights.timeout = d
		}
	}
}

// Analyzer is the single-guest scoring orchestrator.
type Analyzer struct {
	store     MetadataStore
	validator *cache.Validator
	policy    *cache.Policy
	scorer    scoring.Scorer
	now       func() time.Time
	logger    logger.Logger

	dedupe  bool
	group   singleflight.Group
	flights flights
}

// NewAnalyzer creates an Analyzer over store and scorer.
func NewAnalyzer(store MetadataStore, scorer scoring.Scorer, opts ...Option) *Analyzer {
	a := &Analyzer{
		store:     store,
		validator: cache.NewValidator(store),
		policy:    cache.NewPolicy(),
		scorer:    scorer,
		now:       time.Now,
		logger:    logger.Nop(),
		dedupe:    true,
		flights:   flights{timeout: DefaultInflightTimeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeGuest returns the guest's importance score, recomputing it only when
// the cache is missing, changed, expired or bypassed by ForceRefresh.
func (a *Analyzer) AnalyzeGuest(ctx context.Context, req Request) (ScoreResult, error) {
	const op = "importance.analyze_guest"
	if strings.TrimSpace(req.Guest.ID) == "" {
		return ScoreResult{}, wrap(op, ErrValidation, errors.New("guest id is required"))
	}

	digest := fingerprint.Fingerprint(req.Guest)
	if !a.dedupe {
		return a.analyze(ctx, req, digest, ctx.Err)
	}

	key := inflightKey(req, digest)
	f, w := a.flights.join(ctx, key)
	ch := a.group.DoChan(f.key, func() (any, error) {
		return a.analyze(f.ctx, req, digest, func() error { return a.flights.abandoned(f) })
	})

	var r singleflight.Result
	select {
	case <-ctx.Done():
		a.flights.leave(key, f, w)
		return ScoreResult{}, wrap(op, ErrCancelled, ctx.Err())
	case r = <-ch:
		a.flights.leave(key, f, w)
	}
	if r.Shared {
		metrics.RecordInflightShared()
	}
	if r.Err != nil {
		return ScoreResult{}, r.Err
	}
	res := r.Val.(ScoreResult) //nolint:forcetypeassert // only ScoreResult is stored
	if r.Shared {
		res.Breakdown = model.ScoreMetadata{Breakdown: res.Breakdown}.Clone().Breakdown
	}
	return res, nil
}

// analyze runs one cache decision and, when needed, one scorer call. stop is
// consulted before the write; a non-nil error discards the computed score.
func (a *Analyzer) analyze(ctx context.Context, req Request, digest string, stop func() error) (ScoreResult, error) {
	const op = "importance.analyze_guest"
	guestID := req.Guest.ID

	reason := ReasonForced
	if !req.ForceRefresh {
		lookup, err := a.validator.Check(ctx, guestID, digest)
		if err != nil {
			a.logger.Error(ctx, "cache check failed", logger.String("guest_id", guestID), logger.Error(err))
			return ScoreResult{}, wrap(op, ErrStore, err)
		}
		switch lookup.State {
		case cache.Fresh:
			if !a.policy.IsStale(lookup.Metadata.CalculatedAt) {
				metrics.RecordCacheLookup(string(ReasonHit))
				a.logger.Debug(ctx, "serving cached score", logger.String("guest_id", guestID))
				return toResult(lookup.Metadata, true, ReasonHit), nil
			}
			reason = ReasonExpired
		case cache.Stale:
			reason = ReasonChanged
		case cache.Missing:
			reason = ReasonMissing
		}
	}
	metrics.RecordCacheLookup(string(reason))

	start := time.Now()
	res, err := a.scorer.Score(ctx, scoring.Input{Guest: req.Guest, Event: req.Event})
	metrics.RecordScorerCall(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordScorerError(scorerErrorKind(err))
		a.logger.Warn(ctx, "scorer failed",
			logger.String("guest_id", guestID),
			logger.String("reason", string(reason)),
			logger.Error(err),
		)
		if stop() != nil {
			return ScoreResult{}, wrap(op, ErrCancelled, err)
		}
		return ScoreResult{}, wrap(op, ErrScorer, err)
	}
	if math.IsNaN(res.Value) || res.Value < 0 || res.Value > 100 {
		metrics.RecordScorerError("invalid_response")
		return ScoreResult{}, wrap(op, ErrScorer, errors.New("score out of range: "+strconv.FormatFloat(res.Value, 'f', -1, 64)))
	}

	// Abandoned work must not leave a score behind.
	if err := stop(); err != nil {
		return ScoreResult{}, wrap(op, ErrCancelled, err)
	}

	now := a.now().UTC()
	score := res.Value
	meta := model.ScoreMetadata{
		GuestID:      guestID,
		Score:        &score,
		DataHash:     digest,
		CalculatedAt: &now,
		Breakdown:    res.Breakdown,
	}
	if err := a.store.PutMetadata(ctx, meta); err != nil {
		a.logger.Error(ctx, "persisting score failed", logger.String("guest_id", guestID), logger.Error(err))
		return ScoreResult{}, wrap(op, ErrStore, err)
	}

	a.logger.Debug(ctx, "score recomputed",
		logger.String("guest_id", guestID),
		logger.String("reason", string(reason)),
		logger.Float64("score", score),
	)
	return toResult(meta, false, reason), nil
}

func toResult(meta model.ScoreMetadata, cached bool, reason Reason) ScoreResult {
	res := ScoreResult{
		GuestID:   meta.GuestID,
		Breakdown: meta.Breakdown,
		DataHash:  meta.DataHash,
		Cached:    cached,
		Reason:    reason,
	}
	if meta.Score != nil {
		res.Score = *meta.Score
	}
	if meta.CalculatedAt != nil {
		res.CalculatedAt = *meta.CalculatedAt
	}
	return res
}

func inflightKey(req Request, digest string) string {
	eventID := ""
	if req.Event != nil {
		eventID = req.Event.ID
	}
	return req.Guest.ID + "\x00" + digest + "\x00" + eventID + "\x00" + strconv.FormatBool(req.ForceRefresh)
}

func scorerErrorKind(err error) string {
	switch {
	case errors.Is(err, scoring.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, scoring.ErrUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}
