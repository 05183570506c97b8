package diag_test

import (
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/okian/pitchlens/internal/domain/dataerr"
	"github.com/okian/pitchlens/internal/domain/diag"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCollector(t *testing.T) {
	Convey("Given a collector", t, func() {
		c := diag.NewCollector(2)

		Convey("When nothing is recorded", func() {
			r := c.Snapshot()

			Convey("Then the report is empty", func() {
				So(r.UnmatchedRows, ShouldEqual, 0)
				So(r.UnmatchedByPlayer, ShouldBeNil)
				So(r.ConfigurationGaps, ShouldBeNil)
				So(r.SkippedSamples, ShouldBeNil)
			})
		})

		Convey("When workers record unmatched rows concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 100; j++ {
						_ = c.Record(dataerr.Unmatched(999), 1)
					}
				}()
			}
			wg.Wait()
			So(c.Record(dataerr.Unmatched(5), 0), ShouldBeNil)

			Convey("Then totals and per-player counts agree", func() {
				r := c.Snapshot()
				So(r.UnmatchedRows, ShouldEqual, 800)
				So(r.UnmatchedByPlayer[999], ShouldEqual, 800)
				So(r.UnmatchedByPlayer, ShouldNotContainKey, int64(5))
				So(c.UnmatchedRows(), ShouldEqual, 800)
			})
		})

		Convey("When gaps repeat", func() {
			for _, f := range []string{"xthreat", "carry", "xthreat"} {
				So(c.Record(dataerr.Gap("events", f), 0), ShouldBeNil)
			}

			Convey("Then each field is listed once, sorted", func() {
				So(c.Snapshot().ConfigurationGaps["events"], ShouldResemble, []string{"carry", "xthreat"})
			})
		})

		Convey("When a fatal error is recorded", func() {
			malformed := dataerr.Malformed(dataerr.InputTracking, "frame 1", "player_id", "not a number")
			err := c.Record(errors.Wrap(malformed, "join"), 3)

			Convey("Then it is handed back and nothing is counted", func() {
				So(errors.Is(err, dataerr.ErrMalformedValue), ShouldBeTrue)
				So(c.Record(errors.New("disk full"), 1), ShouldNotBeNil)
				So(c.UnmatchedRows(), ShouldEqual, 0)
				So(c.Snapshot().ConfigurationGaps, ShouldBeNil)
			})
		})

		Convey("When more lines are skipped than samples are kept", func() {
			c.AddSkipped(3, "bad json")
			c.AddSkipped(9, "bad json")
			c.AddSkipped(12, "bad json")
			c.AddDuplicateFrame()
			c.AddOutOfOrderFrame()

			Convey("Then the count is exact and samples are capped", func() {
				r := c.Snapshot()
				So(r.SkippedLines, ShouldEqual, 3)
				So(len(r.SkippedSamples), ShouldEqual, 2)
				So(r.SkippedSamples[1].Line, ShouldEqual, 9)
				So(r.DuplicateFrames, ShouldEqual, 1)
				So(r.OutOfOrderFrames, ShouldEqual, 1)
			})
		})
	})
}
