package dataerr_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/okian/pitchlens/internal/domain/dataerr"
	. "github.com/smartystreets/goconvey/convey"
)

func TestErrorClassification(t *testing.T) {
	Convey("Given classified errors", t, func() {
		missing := dataerr.Missing(dataerr.InputMetadata, "", "players")
		malformed := dataerr.Malformed(dataerr.InputMetadata, "player 42", "end_time", `cannot parse "xx"`)

		Convey("Then messages name the input, field, record and reason", func() {
			So(missing.Error(), ShouldEqual, `metadata: missing field "players"`)
			So(malformed.Error(), ShouldEqual, `metadata: malformed value "end_time" at player 42: cannot parse "xx"`)
		})

		Convey("Then kinds survive wrapping", func() {
			wrapped := errors.Wrap(malformed, "normalize roster")
			So(errors.Is(wrapped, dataerr.ErrMalformedValue), ShouldBeTrue)
			So(errors.Is(wrapped, dataerr.ErrMissingField), ShouldBeFalse)

			de, ok := dataerr.As(wrapped)
			So(ok, ShouldBeTrue)
			So(de.Record, ShouldEqual, "player 42")
		})

		Convey("Then input errors are distinguished from internal ones", func() {
			So(dataerr.IsInputError(missing), ShouldBeTrue)
			So(dataerr.IsInputError(malformed), ShouldBeTrue)

			internal := dataerr.Internal(errors.New("disk full"), "write artifact")
			So(dataerr.IsInputError(internal), ShouldBeFalse)
			So(errors.Is(internal, dataerr.ErrInternal), ShouldBeTrue)
		})

		Convey("Then recoverable kinds are not fatal", func() {
			So(dataerr.IsFatal(dataerr.Unmatched(999)), ShouldBeFalse)
			So(dataerr.IsFatal(dataerr.Gap("events", "xthreat")), ShouldBeFalse)
			So(dataerr.IsInputError(dataerr.Unmatched(999)), ShouldBeFalse)
			So(dataerr.IsFatal(malformed), ShouldBeTrue)
			So(dataerr.IsFatal(nil), ShouldBeFalse)
		})

		Convey("Then an unmatched reference names the player", func() {
			err := dataerr.Unmatched(999)
			So(err.Ref, ShouldEqual, 999)
			So(err.Input, ShouldEqual, dataerr.InputTracking)
			So(err.Error(), ShouldEqual, `tracking: unmatched reference "player_id" at player 999`)
		})

		Convey("Then Internal keeps an already classified cause", func() {
			err := dataerr.Internal(missing, "load")
			So(errors.Is(err, dataerr.ErrInternal), ShouldBeFalse)
			So(dataerr.IsInputError(err), ShouldBeTrue)
			So(dataerr.Internal(nil, "noop"), ShouldBeNil)
		})
	})
}
