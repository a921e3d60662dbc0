package period_test

import (
	"testing"
	"time"

	"github.com/p2r3/epochtal/internal/domain/period"
	. "github.com/smartystreets/goconvey/convey"
)

func TestContext_Offset(t *testing.T) {
	Convey("Given weekly periods", t, func() {
		Convey("Then period 1 has no offset", func() {
			c := period.Context{Number: 1, Duration: period.DefaultDuration}
			So(c.Offset(), ShouldEqual, uint64(0))
		})

		Convey("Then period 2 is one week in", func() {
			c := period.Context{Number: 2, Duration: period.DefaultDuration}
			So(c.Offset(), ShouldEqual, uint64(604800))
		})

		Convey("Then period 10 is nine weeks in", func() {
			c := period.Context{Number: 10, Duration: period.DefaultDuration}
			So(c.Offset(), ShouldEqual, uint64(9*604800))
		})
	})
}

func TestStartFor(t *testing.T) {
	Convey("Given a tournament epoch", t, func() {
		epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		Convey("Then period starts advance by one duration each", func() {
			So(period.StartFor(epoch, period.DefaultDuration, 1).Equal(epoch), ShouldBeTrue)
			So(period.StartFor(epoch, period.DefaultDuration, 3).Equal(epoch.AddDate(0, 0, 14)), ShouldBeTrue)
		})
	})
}
