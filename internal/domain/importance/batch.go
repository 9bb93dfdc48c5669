package importance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/guestrank/internal/domain/model"
	"github.com/okian/guestrank/pkg/logger"
	"github.com/okian/guestrank/pkg/metrics"
)

// DefaultBatchConcurrency bounds in-flight analyses per batch.
const DefaultBatchConcurrency = 5

// GuestAnalyzer scores a single guest.
type GuestAnalyzer interface {
	AnalyzeGuest(ctx context.Context, req Request) (ScoreResult, error)
}

// Outcome is the per-guest result of a batch.
type Outcome struct {
	GuestID string       `json:"guest_id"`
	Success bool         `json:"success"`
	Data    *ScoreResult `json:"data,omitempty"`
	Error   string       `json:"error,omitempty"`

	err error
}

// Err returns the failure behind an unsuccessful outcome.
func (o Outcome) Err() error { return o.err }

// BatchResult summarizes a batch. Results follow input order.
type BatchResult struct {
	Total     int       `json:"total"`
	Processed int       `json:"processed"`
	Failed    int       `json:"failed"`
	Results   []Outcome `json:"results"`
}

// BatchOptions tune a single batch call.
type BatchOptions struct {
	ForceRefresh bool
	Event        *model.Event
}

// BatchOption configures a BatchAnalyzer.
type BatchOption func(*BatchAnalyzer)

// WithConcurrency sets the maximum number of guests analysed at once.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchAnalyzer) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBatchTimeout caps the wall time of one batch. Zero disables the cap.
func WithBatchTimeout(d time.Duration) BatchOption {
	return func(b *BatchAnalyzer) {
		if d >= 0 {
			b.timeout = d
		}
	}
}

// WithBatchLogger sets a custom logger.
func WithBatchLogger(l logger.Logger) BatchOption {
	return func(b *BatchAnalyzer) {
		if l != nil {
			b.logger = l
		}
	}
}

// BatchAnalyzer runs AnalyzeGuest over many guests with bounded concurrency.
// A failing guest never aborts its siblings.
type BatchAnalyzer struct {
	analyzer    GuestAnalyzer
	concurrency int
	timeout     time.Duration
	logger      logger.Logger
}

// NewBatchAnalyzer wraps analyzer for batch use.
func NewBatchAnalyzer(analyzer GuestAnalyzer, opts ...BatchOption) *BatchAnalyzer {
	b := &BatchAnalyzer{
		analyzer:    analyzer,
		concurrency: DefaultBatchConcurrency,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AnalyzeGuests scores every guest and returns one outcome per input guest.
// Guests not started before ctx ends are reported as cancelled failures.
func (b *BatchAnalyzer) AnalyzeGuests(ctx context.Context, guests []model.Guest, opts BatchOptions) BatchResult {
	if len(guests) == 0 {
		return BatchResult{Results: []Outcome{}}
	}

	start := time.Now()
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	results := make([]Outcome, len(guests))
	// Plain group: one guest failing must not cancel the others.
	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for i := range guests {
		g.Go(func() error {
			results[i] = b.analyzeOne(ctx, guests[i], opts)
			return nil
		})
	}
	_ = g.Wait()

	res := BatchResult{Total: len(guests), Results: results}
	for _, o := range results {
		if o.Success {
			res.Processed++
		} else {
			res.Failed++
		}
	}

	elapsed := time.Since(start)
	metrics.RecordBatch(res.Total, res.Processed, res.Failed, float64(elapsed.Milliseconds()))
	b.logger.Info(ctx, "batch analysed",
		logger.Int("total", res.Total),
		logger.Int("processed", res.Processed),
		logger.Int("failed", res.Failed),
		logger.Duration("elapsed", elapsed),
	)
	return res
}

func (b *BatchAnalyzer) analyzeOne(ctx context.Context, guest model.Guest, opts BatchOptions) (out Outcome) {
	const op = "importance.analyze_guests"
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error(ctx, "guest analysis panicked", logger.String("guest_id", guest.ID), logger.Any("panic", r))
			out = Failure(guest.ID, wrap(op, ErrScorer, fmt.Errorf("panic: %v", r)))
		}
	}()

	if strings.TrimSpace(guest.ID) == "" {
		return Failure(guest.ID, wrap(op, ErrValidation, errors.New("guest id is required")))
	}
	if err := ctx.Err(); err != nil {
		return Failure(guest.ID, wrap(op, ErrCancelled, err))
	}

	res, err := b.analyzer.AnalyzeGuest(ctx, Request{Guest: guest, Event: opts.Event, ForceRefresh: opts.ForceRefresh})
	if err != nil {
		return Failure(guest.ID, err)
	}
	return Outcome{GuestID: guest.ID, Success: true, Data: &res}
}

// Failure builds the outcome of a guest that could not be scored.
func Failure(guestID string, err error) Outcome {
	return Outcome{GuestID: guestID, Error: err.Error(), err: err}
}
