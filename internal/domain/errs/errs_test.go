package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/p2r3/epochtal/internal/domain/errs"
	. "github.com/smartystreets/goconvey/convey"
)

func TestErrorKinds(t *testing.T) {
	Convey("Given a kinded error", t, func() {
		err := errs.New("weeklog.remove", errs.ErrTimestamp)

		Convey("Then it matches its kind", func() {
			So(errors.Is(err, errs.ErrTimestamp), ShouldBeTrue)
			So(errors.Is(err, errs.ErrArgs), ShouldBeFalse)
			So(errs.Code(err), ShouldEqual, "ERR_TIMESTAMP")
			So(err.Error(), ShouldEqual, "weeklog.remove: ERR_TIMESTAMP")
		})

		Convey("And it survives further wrapping", func() {
			wrapped := fmt.Errorf("submit: %w", err)
			So(errs.Code(wrapped), ShouldEqual, "ERR_TIMESTAMP")
		})
	})

	Convey("Given a kinded error with a cause", t, func() {
		cause := errors.New("boom")
		err := errs.Wrap("weeklog.decode", errs.ErrCorrupt, cause)

		Convey("Then both kind and cause are reachable", func() {
			So(errors.Is(err, errs.ErrCorrupt), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "weeklog.decode: ERR_CORRUPT: boom")
		})
	})

	Convey("Given a plain error", t, func() {
		Convey("Then Code is empty", func() {
			So(errs.Code(errors.New("plain")), ShouldEqual, "")
			So(errs.Code(nil), ShouldEqual, "")
		})
	})
}
