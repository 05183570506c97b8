package tracking_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/okian/pitchlens/internal/domain/dataerr"
	"github.com/okian/pitchlens/internal/domain/diag"
	"github.com/okian/pitchlens/internal/domain/model"
	"github.com/okian/pitchlens/internal/domain/tracking"
	. "github.com/smartystreets/goconvey/convey"
)

func frameLine(frame int64, players ...int64) string {
	ps := make([]string, len(players))
	for i, id := range players {
		ps[i] = fmt.Sprintf(`{"x": %d.5, "y": -%d.25, "player_id": %d, "is_detected": true}`, i, i, id)
	}
	return fmt.Sprintf(`{"frame": %d, "timestamp": "00:00:%02d.00", "period": 1,`+
		` "ball_data": {"x": 0.1, "y": 0.2, "z": 0.3, "is_detected": true},`+
		` "possession": {"player_id": null, "group": "home team"},`+
		` "player_data": [%s]}`, frame, frame%60, strings.Join(ps, ", "))
}

func stream(lines ...string) io.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

func TestDecoder(t *testing.T) {
	ctx := context.Background()

	Convey("Given an NDJSON tracking stream", t, func() {
		Convey("When every line is valid", func() {
			dec := tracking.NewDecoder(stream(frameLine(10, 1, 2), "", frameLine(11)))
			var frames []model.Frame
			for f, err := range dec.Frames(ctx) {
				So(err, ShouldBeNil)
				frames = append(frames, f)
			}

			Convey("Then frames are decoded in order and blank lines ignored", func() {
				So(len(frames), ShouldEqual, 2)
				So(frames[0].Frame, ShouldEqual, 10)
				So(*frames[0].Period, ShouldEqual, 1)
				So(*frames[0].Ball.Z, ShouldEqual, 0.3)
				So(frames[0].Possession.PlayerID, ShouldBeNil)
				So(*frames[0].Possession.Group, ShouldEqual, "home team")
				So(len(frames[0].Players), ShouldEqual, 2)
				So(frames[0].Players[1].PlayerID, ShouldEqual, 2)
				So(len(frames[1].Players), ShouldEqual, 0)
				So(dec.Line(), ShouldEqual, 3)
			})
		})

		Convey("When a pre-kickoff frame has null context", func() {
			dec := tracking.NewDecoder(stream(`{"frame": 0, "timestamp": null, "period": null,` +
				` "ball_data": {"x": null, "y": null, "z": null, "is_detected": null},` +
				` "possession": {"player_id": null, "group": null}, "player_data": []}`))
			f, err := dec.Next(ctx)

			Convey("Then it decodes with nil fields", func() {
				So(err, ShouldBeNil)
				So(f.Period, ShouldBeNil)
				So(f.Timestamp, ShouldBeNil)
				So(f.Ball.X, ShouldBeNil)
				So(f.Ball.IsDetected, ShouldBeFalse)
			})
		})

		Convey("When a line is malformed under the abort policy", func() {
			dec := tracking.NewDecoder(stream(frameLine(1, 7), "{broken", frameLine(2, 7)))
			_, err := dec.Next(ctx)
			So(err, ShouldBeNil)
			_, err = dec.Next(ctx)

			Convey("Then MalformedValue names the line", func() {
				So(errors.Is(err, dataerr.ErrMalformedValue), ShouldBeTrue)
				de, _ := dataerr.As(err)
				So(de.Input, ShouldEqual, dataerr.InputTracking)
				So(de.Record, ShouldEqual, "line 2")
			})
		})

		Convey("When lines are malformed under the skip policy", func() {
			c := diag.NewCollector(0)
			dec := tracking.NewDecoder(
				stream(frameLine(1, 7), "{broken", `{"frame": 2, "period": 5, "player_data": []}`,
					`{"frame": 3, "player_data": [{"x": 1, "player_id": 7}]}`, frameLine(4, 7)),
				tracking.WithPolicy(tracking.Skip),
				tracking.WithCollector(c),
			)
			var ids []int64
			for f, err := range dec.Frames(ctx) {
				So(err, ShouldBeNil)
				ids = append(ids, f.Frame)
			}

			Convey("Then good frames continue and skips are recorded", func() {
				So(ids, ShouldResemble, []int64{1, 4})
				r := c.Snapshot()
				So(r.SkippedLines, ShouldEqual, 3)
				So(r.SkippedSamples[0].Line, ShouldEqual, 2)
				So(r.SkippedSamples[1].Reason, ShouldContainSubstring, "period")
				So(r.SkippedSamples[2].Reason, ShouldContainSubstring, "player_data[0].y")
			})
		})

		Convey("When a line exceeds the size limit", func() {
			dec := tracking.NewDecoder(stream(frameLine(1, 1, 2, 3, 4, 5), frameLine(2)),
				tracking.WithMaxLineBytes(256), tracking.WithPolicy(tracking.Skip))
			f, err := dec.Next(ctx)

			Convey("Then the long line is skipped whole", func() {
				So(err, ShouldBeNil)
				So(f.Frame, ShouldEqual, 2)
				So(dec.Line(), ShouldEqual, 2)
			})
		})

		Convey("When the stream is empty", func() {
			_, err := tracking.NewDecoder(strings.NewReader("")).Next(ctx)

			Convey("Then io.EOF is returned", func() {
				So(err, ShouldEqual, io.EOF)
			})
		})
	})
}

func TestParsePolicy(t *testing.T) {
	Convey("Policies parse from configuration values", t, func() {
		p, err := tracking.ParsePolicy("skip")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, tracking.Skip)
		_, err = tracking.ParsePolicy("ignore")
		So(errors.Is(err, tracking.ErrUnknownPolicy), ShouldBeTrue)
	})
}

func TestFlatten(t *testing.T) {
	Convey("Given frames with varying player counts", t, func() {
		for _, n := range []int{0, 1, 22, 23} {
			players := make([]int64, n)
			for i := range players {
				players[i] = int64(100 + i)
			}
			dec := tracking.NewDecoder(stream(frameLine(5, players...)))
			f, err := dec.Next(context.Background())
			So(err, ShouldBeNil)

			rows := tracking.Flatten("m-1", f)

			So(len(rows), ShouldEqual, len(f.Players))
			for i, r := range rows {
				So(r.MatchID, ShouldEqual, "m-1")
				So(r.Frame, ShouldEqual, 5)
				So(r.PlayerID, ShouldEqual, players[i])
				So(*r.BallX, ShouldEqual, 0.1)
				So(r.BallIsDetected, ShouldBeTrue)
				So(*r.PossessionGroup, ShouldEqual, "home team")
			}
		}
	})
}

func TestFlattenerRun(t *testing.T) {
	ctx := context.Background()

	Convey("Given a tracking stream", t, func() {
		var lines []string
		for i := int64(1); i <= 7; i++ {
			lines = append(lines, frameLine(i, 1, 2, 3))
		}

		Convey("When flattening in batches of three frames", func() {
			var batches []tracking.Batch
			st, err := tracking.NewFlattener(tracking.WithBatchFrames(3)).Run(ctx, stream(lines...), "m-1",
				func(_ context.Context, b tracking.Batch) error {
					batches = append(batches, b)
					return nil
				})

			Convey("Then batches are sequenced and rows keep frame order", func() {
				So(err, ShouldBeNil)
				So(st.Frames, ShouldEqual, 7)
				So(st.Rows, ShouldEqual, 21)
				So(st.Batches, ShouldEqual, 3)
				So(len(batches), ShouldEqual, 3)
				So(batches[2].Frames, ShouldEqual, 1)

				var prev int64
				for i, b := range batches {
					So(b.Seq, ShouldEqual, i)
					for _, r := range b.Rows {
						So(r.Frame, ShouldBeGreaterThanOrEqualTo, prev)
						prev = r.Frame
					}
				}
			})
		})

		Convey("When frames repeat or go backwards", func() {
			c := diag.NewCollector(0)
			in := stream(frameLine(1, 1), frameLine(2, 1), frameLine(2, 1), frameLine(4, 1), frameLine(3, 1))
			var rows []model.TrackingRow
			st, err := tracking.NewFlattener(tracking.WithCollector(c)).Run(ctx, in, "m-1",
				func(_ context.Context, b tracking.Batch) error {
					rows = append(rows, b.Rows...)
					return nil
				})

			Convey("Then duplicates are dropped and late frames kept", func() {
				So(err, ShouldBeNil)
				So(st.DuplicateFrames, ShouldEqual, 1)
				So(st.OutOfOrderFrames, ShouldEqual, 1)
				So(len(rows), ShouldEqual, 4)
				So(rows[3].Frame, ShouldEqual, 3)
				So(c.Snapshot().DuplicateFrames, ShouldEqual, 1)
			})
		})

		Convey("When the sink fails", func() {
			boom := errors.New("sink closed")
			_, err := tracking.NewFlattener(tracking.WithBatchFrames(2)).Run(ctx, stream(lines...), "m-1",
				func(context.Context, tracking.Batch) error { return boom })

			Convey("Then the error is returned", func() {
				So(errors.Is(err, boom), ShouldBeTrue)
			})
		})

		Convey("When a line is malformed under abort", func() {
			_, err := tracking.NewFlattener().Run(ctx, stream(frameLine(1, 1), "nope"), "m-1",
				func(context.Context, tracking.Batch) error { return nil })

			Convey("Then the run fails with MalformedValue", func() {
				So(errors.Is(err, dataerr.ErrMalformedValue), ShouldBeTrue)
			})
		})
	})
}
