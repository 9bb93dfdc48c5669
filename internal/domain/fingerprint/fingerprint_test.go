package fingerprint_test

import (
	"testing"

	"github.com/okian/guestrank/internal/domain/fingerprint"
	"github.com/okian/guestrank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func baseGuest() model.Guest {
	return model.Guest{
		ID:        "g1",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Company:   "Acme",
		JobTitle:  "CTO",
		Notes:     "keynote speaker",
		Phone:     "+1 555 0100",
		Address:   "1 Main St",
	}
}

func TestFingerprint(t *testing.T) {
	Convey("Given a guest", t, func() {
		g := baseGuest()
		digest := fingerprint.Fingerprint(g)

		Convey("Then the digest is a 256-bit hex string", func() {
			So(len(digest), ShouldEqual, 64)
		})

		Convey("Then repeated calls yield the same digest", func() {
			for i := 0; i < 10; i++ {
				So(fingerprint.Fingerprint(g), ShouldEqual, digest)
			}
		})

		Convey("When any fingerprinted field changes", func() {
			mutations := map[string]func(*model.Guest){
				"first name": func(x *model.Guest) { x.FirstName = "Ada B." },
				"last name":  func(x *model.Guest) { x.LastName = "Byron" },
				"email":      func(x *model.Guest) { x.Email = "ada@acme.test" },
				"company":    func(x *model.Guest) { x.Company = "Acme Inc" },
				"job title":  func(x *model.Guest) { x.JobTitle = "CEO" },
				"notes":      func(x *model.Guest) { x.Notes = "" },
			}

			Convey("Then the digest changes", func() {
				for _, mutate := range mutations {
					changed := baseGuest()
					mutate(&changed)
					So(fingerprint.Fingerprint(changed), ShouldNotEqual, digest)
				}
			})
		})

		Convey("When only non-fingerprinted fields change", func() {
			other := g
			other.ID = "g2"
			other.Phone = "+44 20 0000"
			other.Address = "elsewhere"
			other.OrganizationID = "org-9"

			Convey("Then the digest is unchanged", func() {
				So(fingerprint.Fingerprint(other), ShouldEqual, digest)
			})
		})

		Convey("When a value moves across a field boundary", func() {
			a := model.Guest{FirstName: "Ann", LastName: "Lee"}
			b := model.Guest{FirstName: "An", LastName: "nLee"}

			Convey("Then the digests differ", func() {
				So(fingerprint.Fingerprint(a), ShouldNotEqual, fingerprint.Fingerprint(b))
			})
		})
	})
}
