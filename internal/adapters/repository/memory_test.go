package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/guestrank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryStore_Metadata(t *testing.T) {
	Convey("Given an empty memory store", t, func() {
		ctx := context.Background()
		s := NewMemoryStore()

		Convey("When reading an unknown guest", func() {
			_, found, err := s.GetMetadata(ctx, "g1")

			Convey("Then it is not found without an error", func() {
				So(err, ShouldBeNil)
				So(found, ShouldBeFalse)
			})
		})

		Convey("When metadata is written", func() {
			score := 72.0
			at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
			meta := model.ScoreMetadata{
				GuestID:      "g1",
				Score:        &score,
				DataHash:     "abc",
				CalculatedAt: &at,
				Breakdown:    model.Breakdown{"signal.base": 10.0},
			}
			So(s.PutMetadata(ctx, meta), ShouldBeNil)

			Convey("Then it reads back equal", func() {
				got, found, err := s.GetMetadata(ctx, "g1")
				So(err, ShouldBeNil)
				So(found, ShouldBeTrue)
				So(*got.Score, ShouldEqual, 72.0)
				So(got.DataHash, ShouldEqual, "abc")
				So(got.CalculatedAt.Equal(at), ShouldBeTrue)
				So(got.Breakdown["signal.base"], ShouldEqual, 10.0)
			})

			Convey("Then callers cannot mutate the stored copy", func() {
				score = 1
				meta.Breakdown["signal.base"] = 99.0
				got, _, _ := s.GetMetadata(ctx, "g1")
				So(*got.Score, ShouldEqual, 72.0)
				So(got.Breakdown["signal.base"], ShouldEqual, 10.0)

				got.Breakdown["x"] = 1
				again, _, _ := s.GetMetadata(ctx, "g1")
				So(again.Breakdown, ShouldNotContainKey, "x")
			})

			Convey("Then a second write replaces the whole record", func() {
				newScore := 80.0
				So(s.PutMetadata(ctx, model.ScoreMetadata{GuestID: "g1", Score: &newScore, DataHash: "def", CalculatedAt: &at}), ShouldBeNil)
				got, _, _ := s.GetMetadata(ctx, "g1")
				So(*got.Score, ShouldEqual, 80.0)
				So(got.DataHash, ShouldEqual, "def")
				So(got.Breakdown, ShouldBeNil)
			})
		})

		Convey("When metadata has no guest id", func() {
			err := s.PutMetadata(ctx, model.ScoreMetadata{})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, ErrInvalidRecord), ShouldBeTrue)
			})
		})
	})
}

func TestMemoryStore_Guests(t *testing.T) {
	Convey("Given a memory store with guests in two organizations", t, func() {
		ctx := context.Background()
		s := NewMemoryStore()
		So(s.UpsertGuest(ctx, model.Guest{ID: "g2", OrganizationID: "org1", FirstName: "Bo"}), ShouldBeNil)
		So(s.UpsertGuest(ctx, model.Guest{ID: "g1", OrganizationID: "org1", FirstName: "Al"}), ShouldBeNil)
		So(s.UpsertGuest(ctx, model.Guest{ID: "g3", OrganizationID: "org2", FirstName: "Cy"}), ShouldBeNil)
		So(s.UpsertEvent(ctx, model.Event{ID: "e1", Industry: "fintech"}), ShouldBeNil)

		Convey("When listing one organization", func() {
			guests, err := s.ListGuests(ctx, "org1")

			Convey("Then only its guests are returned ordered by id", func() {
				So(err, ShouldBeNil)
				So(len(guests), ShouldEqual, 2)
				So(guests[0].ID, ShouldEqual, "g1")
				So(guests[1].ID, ShouldEqual, "g2")
			})
		})

		Convey("When listing an unknown organization", func() {
			guests, err := s.ListGuests(ctx, "nope")

			Convey("Then an empty list is returned", func() {
				So(err, ShouldBeNil)
				So(guests, ShouldNotBeNil)
				So(guests, ShouldBeEmpty)
			})
		})

		Convey("When a guest is updated", func() {
			So(s.UpsertGuest(ctx, model.Guest{ID: "g1", OrganizationID: "org1", FirstName: "Al", Company: "Acme"}), ShouldBeNil)
			g, err := s.GetGuest(ctx, "g1")

			Convey("Then the new data is returned", func() {
				So(err, ShouldBeNil)
				So(g.Company, ShouldEqual, "Acme")
			})
		})

		Convey("When reading unknown records", func() {
			_, gErr := s.GetGuest(ctx, "missing")
			_, eErr := s.GetEvent(ctx, "missing")

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(gErr, ErrNotFound), ShouldBeTrue)
				So(errors.Is(eErr, ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When reading stats", func() {
			st, err := s.Stats(ctx)

			Convey("Then counts reflect the contents", func() {
				So(err, ShouldBeNil)
				So(st, ShouldResemble, Stats{Guests: 3, Events: 1, Scored: 0})
			})
		})

		Convey("When records lack ids", func() {
			So(errors.Is(s.UpsertGuest(ctx, model.Guest{}), ErrInvalidRecord), ShouldBeTrue)
			So(errors.Is(s.UpsertEvent(ctx, model.Event{}), ErrInvalidRecord), ShouldBeTrue)
		})
	})
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	Convey("Given concurrent writers and readers", t, func() {
		ctx := context.Background()
		s := NewMemoryStore()
		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(2)
			go func() {
				defer wg.Done()
				v := float64(i)
				_ = s.PutMetadata(ctx, model.ScoreMetadata{GuestID: "g1", Score: &v, DataHash: "h"})
			}()
			go func() {
				defer wg.Done()
				_, _, _ = s.GetMetadata(ctx, "g1")
			}()
		}
		wg.Wait()

		got, found, err := s.GetMetadata(ctx, "g1")
		So(err, ShouldBeNil)
		So(found, ShouldBeTrue)
		So(got.DataHash, ShouldEqual, "h")
		So(s.Close(), ShouldBeNil)
	})
}
