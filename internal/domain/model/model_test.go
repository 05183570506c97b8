package model_test

import (
	"testing"

	model "github.com/okian/pitchlens/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestEnrich(t *testing.T) {
	convey.Convey("Given a tracking row and a roster entry", t, func() {
		ts := "00:00:01.10"
		period := 1
		bx := 1.5
		group := "home team"
		row := model.TrackingRow{
			MatchID:         "m1",
			Frame:           11,
			Timestamp:       &ts,
			Period:          &period,
			PlayerID:        7,
			X:               -3.2,
			Y:               10,
			IsDetected:      true,
			BallX:           &bx,
			BallIsDetected:  true,
			PossessionGroup: &group,
		}
		entry := model.RosterEntry{
			PlayerID:        7,
			ShortName:       "A. Player",
			Number:          9,
			TeamID:          100,
			TeamName:        "Home FC",
			HomeAway:        model.Home,
			PositionAcronym: "CF",
			TotalSeconds:    5400,
			DirectionFirst:  "left_to_right",
			DirectionSecond: "right_to_left",
			MatchName:       "Home FC vs Away FC",
			FirstName:       "Alex",
			LastName:        "Player",
			DateTime:        "2024-11-30T04:00:00Z",
			HomeTeamName:    "Home FC",
			AwayTeamName:    "Away FC",
		}

		convey.Convey("When enriching", func() {
			rec := model.Enrich(row, entry)

			convey.Convey("Then tracking fields are carried over", func() {
				convey.So(rec.MatchID, convey.ShouldEqual, "m1")
				convey.So(rec.Frame, convey.ShouldEqual, 11)
				convey.So(*rec.Timestamp, convey.ShouldEqual, ts)
				convey.So(*rec.Period, convey.ShouldEqual, 1)
				convey.So(*rec.BallX, convey.ShouldEqual, 1.5)
				convey.So(rec.BallY, convey.ShouldBeNil)
				convey.So(rec.PossessionPlayerID, convey.ShouldBeNil)
				convey.So(*rec.PossessionGroup, convey.ShouldEqual, group)
			})

			convey.Convey("Then roster fields are attached", func() {
				convey.So(rec.PlayerID, convey.ShouldEqual, entry.PlayerID)
				convey.So(rec.HomeAway, convey.ShouldEqual, "home")
				convey.So(rec.Number, convey.ShouldEqual, 9)
				convey.So(rec.DirectionFirstHalf, convey.ShouldEqual, "left_to_right")
				convey.So(rec.TotalTimeSeconds, convey.ShouldEqual, 5400)
				convey.So(rec.MatchName, convey.ShouldEqual, "Home FC vs Away FC")
				convey.So(rec.FirstName, convey.ShouldEqual, "Alex")
				convey.So(rec.LastName, convey.ShouldEqual, "Player")
				convey.So(rec.DateTime, convey.ShouldEqual, "2024-11-30T04:00:00Z")
				convey.So(rec.HomeTeamName, convey.ShouldEqual, "Home FC")
				convey.So(rec.AwayTeamName, convey.ShouldEqual, "Away FC")
			})
		})

		convey.Convey("When the frame has no period", func() {
			row.Period = nil
			rec := model.Enrich(row, entry)

			convey.Convey("Then the period stays null", func() {
				convey.So(rec.Period, convey.ShouldBeNil)
			})
		})
	})
}
