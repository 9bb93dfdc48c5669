package model_test

import (
	"testing"
	"time"

	"github.com/okian/guestrank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScoreMetadata_Clone(t *testing.T) {
	Convey("Given stored metadata", t, func() {
		score := 72.0
		at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		orig := model.ScoreMetadata{
			GuestID:      "g1",
			Score:        &score,
			DataHash:     "abc",
			CalculatedAt: &at,
			Breakdown:    model.Breakdown{"title": 40.0},
		}

		Convey("When the clone is mutated", func() {
			c := orig.Clone()
			*c.Score = 1
			*c.CalculatedAt = time.Time{}
			c.Breakdown["title"] = 0.0

			Convey("Then the original is untouched", func() {
				So(*orig.Score, ShouldEqual, 72.0)
				So(orig.CalculatedAt.Equal(at), ShouldBeTrue)
				So(orig.Breakdown["title"], ShouldEqual, 40.0)
			})
		})

		Convey("When cloning an empty record", func() {
			c := model.ScoreMetadata{GuestID: "g2"}.Clone()

			Convey("Then nil fields stay nil", func() {
				So(c.Score, ShouldBeNil)
				So(c.CalculatedAt, ShouldBeNil)
				So(c.Breakdown, ShouldBeNil)
			})
		})
	})
}
