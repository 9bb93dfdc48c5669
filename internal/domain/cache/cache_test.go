package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/guestrank/internal/domain/cache"
	"github.com/okian/guestrank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type stubReader struct {
	meta  model.ScoreMetadata
	found bool
	err   error
	calls int
}

func (s *stubReader) GetMetadata(_ context.Context, _ string) (model.ScoreMetadata, bool, error) {
	s.calls++
	return s.meta, s.found, s.err
}

func ptr[T any](v T) *T { return &v }

func TestValidator_Check(t *testing.T) {
	Convey("Given a validator over a metadata reader", t, func() {
		ctx := context.Background()
		reader := &stubReader{}
		v := cache.NewValidator(reader)

		Convey("When no record exists", func() {
			l, err := v.Check(ctx, "g1", "hash")

			Convey("Then the lookup is Missing", func() {
				So(err, ShouldBeNil)
				So(l.State, ShouldEqual, cache.Missing)
				So(l.Valid(), ShouldBeFalse)
				So(reader.calls, ShouldEqual, 1)
			})
		})

		Convey("When the record has no score", func() {
			reader.found = true
			reader.meta = model.ScoreMetadata{GuestID: "g1", DataHash: "hash"}
			l, err := v.Check(ctx, "g1", "hash")

			Convey("Then the lookup is Missing", func() {
				So(err, ShouldBeNil)
				So(l.State, ShouldEqual, cache.Missing)
			})
		})

		Convey("When the record has no hash", func() {
			reader.found = true
			reader.meta = model.ScoreMetadata{GuestID: "g1", Score: ptr(10.0)}
			l, _ := v.Check(ctx, "g1", "hash")

			Convey("Then the lookup is Missing", func() {
				So(l.State, ShouldEqual, cache.Missing)
			})
		})

		Convey("When the stored hash differs", func() {
			reader.found = true
			reader.meta = model.ScoreMetadata{GuestID: "g1", Score: ptr(72.0), DataHash: "old"}
			l, err := v.Check(ctx, "g1", "new")

			Convey("Then the lookup is Stale and hides the record", func() {
				So(err, ShouldBeNil)
				So(l.State, ShouldEqual, cache.Stale)
				So(l.Valid(), ShouldBeFalse)
				So(l.Metadata.Score, ShouldBeNil)
				So(l.Metadata.GuestID, ShouldBeEmpty)
			})
		})

		Convey("When the stored hash matches", func() {
			reader.found = true
			reader.meta = model.ScoreMetadata{GuestID: "g1", Score: ptr(72.0), DataHash: "same"}
			l, err := v.Check(ctx, "g1", "same")

			Convey("Then the lookup is Fresh with the record", func() {
				So(err, ShouldBeNil)
				So(l.Valid(), ShouldBeTrue)
				So(*l.Metadata.Score, ShouldEqual, 72.0)
			})
		})

		Convey("When the store fails", func() {
			reader.err = errors.New("connection reset")
			_, err := v.Check(ctx, "g1", "hash")

			Convey("Then the error is wrapped as a lookup failure", func() {
				So(errors.Is(err, cache.ErrLookup), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "connection reset")
			})
		})
	})
}

func TestState_String(t *testing.T) {
	Convey("Given cache states", t, func() {
		So(cache.Missing.String(), ShouldEqual, "missing")
		So(cache.Stale.String(), ShouldEqual, "stale")
		So(cache.Fresh.String(), ShouldEqual, "fresh")
		So(cache.State(9).String(), ShouldEqual, "state(9)")
	})
}

func TestPolicy_IsStale(t *testing.T) {
	Convey("Given a policy with a fixed clock", t, func() {
		now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
		p := cache.NewPolicy(cache.WithClock(func() time.Time { return now }))

		Convey("Then the default TTL is 30 days", func() {
			So(p.TTL(), ShouldEqual, 30*24*time.Hour)
		})

		Convey("When the score was never computed", func() {
			So(p.IsStale(nil), ShouldBeTrue)
			So(p.IsStale(&time.Time{}), ShouldBeTrue)
		})

		Convey("When the score is younger than the TTL", func() {
			So(p.IsStale(ptr(now.Add(-29*24*time.Hour))), ShouldBeFalse)
		})

		Convey("When the score is exactly TTL days old", func() {
			So(p.IsStale(ptr(now.Add(-30*24*time.Hour))), ShouldBeFalse)
		})

		Convey("When the score is older than the TTL", func() {
			So(p.IsStale(ptr(now.Add(-30*24*time.Hour-time.Second))), ShouldBeTrue)
		})

		Convey("When the TTL is overridden", func() {
			short := cache.NewPolicy(cache.WithTTLDays(1), cache.WithClock(func() time.Time { return now }))
			So(short.IsStale(ptr(now.Add(-25*time.Hour))), ShouldBeTrue)
			So(short.IsStale(ptr(now.Add(-23*time.Hour))), ShouldBeFalse)
		})

		Convey("When invalid TTL options are given", func() {
			p := cache.NewPolicy(cache.WithTTLDays(0), cache.WithTTL(-time.Hour), cache.WithClock(nil))
			So(p.TTL(), ShouldEqual, 30*24*time.Hour)
		})
	})

	Convey("Given the pure staleness function", t, func() {
		now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

		So(cache.IsStale(nil, 30, now), ShouldBeTrue)
		So(cache.IsStale(ptr(now.Add(-31*24*time.Hour)), 30, now), ShouldBeTrue)
		So(cache.IsStale(ptr(now.Add(-31*24*time.Hour)), 60, now), ShouldBeFalse)
		So(cache.IsStale(ptr(now.Add(-10*24*time.Hour)), 0, now), ShouldBeFalse)
	})
}
