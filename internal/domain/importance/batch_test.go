package importance_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/guestrank/internal/domain/importance"
	"github.com/okian/guestrank/internal/domain/model"
	"github.com/okian/guestrank/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

type analyzerFunc func(ctx context.Context, req importance.Request) (importance.ScoreResult, error)

func (f analyzerFunc) AnalyzeGuest(ctx context.Context, req importance.Request) (importance.ScoreResult, error) {
	return f(ctx, req)
}

func TestBatchAnalyzer_AnalyzeGuests(t *testing.T) {
	Convey("Given a batch analyzer", t, func() {
		ctx := context.Background()

		Convey("When one guest succeeds and one fails", func() {
			b := importance.NewBatchAnalyzer(analyzerFunc(func(_ context.Context, req importance.Request) (importance.ScoreResult, error) {
				if req.Guest.ID == "g2" {
					return importance.ScoreResult{}, importance.ErrScorer
				}
				return importance.ScoreResult{GuestID: req.Guest.ID, Score: 55}, nil
			}))
			res := b.AnalyzeGuests(ctx, []model.Guest{{ID: "g1"}, {ID: "g2"}}, importance.BatchOptions{})

			Convey("Then outcomes follow input order with isolated failures", func() {
				So(res.Total, ShouldEqual, 2)
				So(res.Processed, ShouldEqual, 1)
				So(res.Failed, ShouldEqual, 1)
				So(res.Results[0].GuestID, ShouldEqual, "g1")
				So(res.Results[0].Success, ShouldBeTrue)
				So(res.Results[0].Data.Score, ShouldEqual, 55)
				So(res.Results[1].GuestID, ShouldEqual, "g2")
				So(res.Results[1].Success, ShouldBeFalse)
				So(res.Results[1].Error, ShouldNotBeEmpty)
				So(errors.Is(res.Results[1].Err(), importance.ErrScorer), ShouldBeTrue)
			})
		})

		Convey("When the batch is empty", func() {
			b := importance.NewBatchAnalyzer(analyzerFunc(nil))
			res := b.AnalyzeGuests(ctx, nil, importance.BatchOptions{})

			Convey("Then every count is zero", func() {
				So(res.Total, ShouldEqual, 0)
				So(res.Processed, ShouldEqual, 0)
				So(res.Failed, ShouldEqual, 0)
				So(res.Results, ShouldNotBeNil)
				So(res.Results, ShouldBeEmpty)
			})
		})

		Convey("When a guest has no id", func() {
			var calls atomic.Int32
			b := importance.NewBatchAnalyzer(analyzerFunc(func(_ context.Context, req importance.Request) (importance.ScoreResult, error) {
				calls.Add(1)
				return importance.ScoreResult{GuestID: req.Guest.ID}, nil
			}))
			res := b.AnalyzeGuests(ctx, []model.Guest{{ID: ""}, {ID: "g2"}}, importance.BatchOptions{})

			Convey("Then only that guest fails validation", func() {
				So(res.Failed, ShouldEqual, 1)
				So(errors.Is(res.Results[0].Err(), importance.ErrValidation), ShouldBeTrue)
				So(res.Results[1].Success, ShouldBeTrue)
				So(calls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When analysing a guest panics", func() {
			b := importance.NewBatchAnalyzer(analyzerFunc(func(_ context.Context, req importance.Request) (importance.ScoreResult, error) {
				if req.Guest.ID == "bad" {
					panic("boom")
				}
				return importance.ScoreResult{GuestID: req.Guest.ID}, nil
			}))
			res := b.AnalyzeGuests(ctx, []model.Guest{{ID: "bad"}, {ID: "ok"}}, importance.BatchOptions{})

			Convey("Then the panic becomes a per-guest failure", func() {
				So(res.Processed, ShouldEqual, 1)
				So(res.Results[0].Success, ShouldBeFalse)
				So(res.Results[0].Error, ShouldContainSubstring, "panic: boom")
			})
		})

		Convey("When options are passed", func() {
			var forced atomic.Bool
			event := &model.Event{ID: "e1"}
			var sawEvent atomic.Bool
			b := importance.NewBatchAnalyzer(analyzerFunc(func(_ context.Context, req importance.Request) (importance.ScoreResult, error) {
				forced.Store(req.ForceRefresh)
				sawEvent.Store(req.Event == event)
				return importance.ScoreResult{}, nil
			}))
			b.AnalyzeGuests(ctx, []model.Guest{{ID: "g1"}}, importance.BatchOptions{ForceRefresh: true, Event: event})

			Convey("Then they reach every guest analysis", func() {
				So(forced.Load(), ShouldBeTrue)
				So(sawEvent.Load(), ShouldBeTrue)
			})
		})
	})
}

func TestBatchAnalyzer_Concurrency(t *testing.T) {
	Convey("Given a batch analyzer limited to 2 concurrent guests", t, func() {
		var current, peak atomic.Int32
		b := importance.NewBatchAnalyzer(analyzerFunc(func(_ context.Context, req importance.Request) (importance.ScoreResult, error) {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			current.Add(-1)
			return importance.ScoreResult{GuestID: req.Guest.ID}, nil
		}), importance.WithConcurrency(2))

		guests := make([]model.Guest, 10)
		for i := range guests {
			guests[i] = model.Guest{ID: string(rune('a' + i))}
		}
		res := b.AnalyzeGuests(context.Background(), guests, importance.BatchOptions{})

		So(res.Processed, ShouldEqual, 10)
		So(peak.Load(), ShouldBeLessThanOrEqualTo, 2)
		So(peak.Load(), ShouldBeGreaterThan, 0)
	})
}

func TestBatchAnalyzer_Timeout(t *testing.T) {
	Convey("Given a batch analyzer with a short timeout", t, func() {
		b := importance.NewBatchAnalyzer(analyzerFunc(func(ctx context.Context, _ importance.Request) (importance.ScoreResult, error) {
			<-ctx.Done()
			return importance.ScoreResult{}, ctx.Err()
		}), importance.WithConcurrency(1), importance.WithBatchTimeout(20*time.Millisecond))

		Convey("When the guests outlast the deadline", func() {
			res := b.AnalyzeGuests(context.Background(), []model.Guest{{ID: "g1"}, {ID: "g2"}, {ID: "g3"}}, importance.BatchOptions{})

			Convey("Then every guest fails and unstarted ones are cancelled", func() {
				So(res.Total, ShouldEqual, 3)
				So(res.Failed, ShouldEqual, 3)
				So(errors.Is(res.Results[0].Err(), context.DeadlineExceeded), ShouldBeTrue)
				So(errors.Is(res.Results[2].Err(), importance.ErrCancelled), ShouldBeTrue)
			})
		})
	})
}

func TestBatchAnalyzer_PartialTimeout(t *testing.T) {
	Convey("Given a real analyzer where only g1 scores quickly", t, func() {
		store := newMemStore()
		scorer := scoring.Func(func(ctx context.Context, in scoring.Input) (scoring.Result, error) {
			if in.Guest.ID == "g1" {
				return scoring.Result{Value: 30}, nil
			}
			<-ctx.Done()
			return scoring.Result{}, ctx.Err()
		})
		b := importance.NewBatchAnalyzer(importance.NewAnalyzer(store, scorer),
			importance.WithConcurrency(3), importance.WithBatchTimeout(50*time.Millisecond))

		Convey("When the batch deadline passes", func() {
			res := b.AnalyzeGuests(context.Background(),
				[]model.Guest{{ID: "g1", FirstName: "A"}, {ID: "g2", FirstName: "B"}, {ID: "g3", FirstName: "C"}},
				importance.BatchOptions{})
			time.Sleep(20 * time.Millisecond)

			Convey("Then finished guests stay successful and the rest are cancelled", func() {
				So(res.Total, ShouldEqual, 3)
				So(res.Processed, ShouldEqual, 1)
				So(res.Failed, ShouldEqual, 2)
				So(res.Results[0].Success, ShouldBeTrue)
				So(res.Results[0].Data.Score, ShouldEqual, 30)
				So(errors.Is(res.Results[1].Err(), importance.ErrCancelled), ShouldBeTrue)
				So(errors.Is(res.Results[2].Err(), importance.ErrCancelled), ShouldBeTrue)
			})

			Convey("Then only the finished guest is persisted", func() {
				So(store.putCount(), ShouldEqual, 1)
				_, ok, _ := store.GetMetadata(context.Background(), "g1")
				So(ok, ShouldBeTrue)
				_, ok, _ = store.GetMetadata(context.Background(), "g2")
				So(ok, ShouldBeFalse)
			})
		})
	})
}
