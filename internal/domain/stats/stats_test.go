package stats_test

import (
	"math"
	"testing"

	"github.com/okian/fantasycricket/internal/domain/model"
	"github.com/okian/fantasycricket/internal/domain/stats"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBallsBowled(t *testing.T) {
	Convey("Given overs in cricket notation", t, func() {
		So(stats.BallsBowled(0), ShouldEqual, 0)
		So(stats.BallsBowled(1), ShouldEqual, 6)
		So(stats.BallsBowled(10.3), ShouldEqual, 63)
		So(stats.BallsBowled(0.5), ShouldEqual, 5)
		So(stats.BallsBowled(4.1), ShouldEqual, 25)
		So(stats.BallsBowled(50), ShouldEqual, 300)

		Convey("Then digits past the first decimal are ignored", func() {
			So(stats.BallsBowled(10.35), ShouldEqual, 63)
		})

		Convey("Then nonsense input yields zero", func() {
			So(stats.BallsBowled(-3), ShouldEqual, 0)
			So(stats.BallsBowled(math.NaN()), ShouldEqual, 0)
			So(stats.BallsBowled(math.Inf(1)), ShouldEqual, 0)
		})
	})
}

func TestDerive(t *testing.T) {
	Convey("Given a player who never batted or bowled", t, func() {
		d := stats.Derive(model.RawStats{})

		Convey("Then every rate is zero and bowling strike rate is absent", func() {
			So(d.BattingStrikeRate, ShouldEqual, 0)
			So(d.BattingAverage, ShouldEqual, 0)
			So(d.BallsBowled, ShouldEqual, 0)
			So(d.BowlingStrikeRate, ShouldBeNil)
			So(d.EconomyRate, ShouldEqual, 0)
		})
	})

	Convey("Given a pure batsman", t, func() {
		d := stats.Derive(model.RawStats{TotalRuns: 500, BallsFaced: 400, InningsPlayed: 10})

		So(d.BattingStrikeRate, ShouldEqual, 125)
		So(d.BattingAverage, ShouldEqual, 50)
		So(d.BowlingStrikeRate, ShouldBeNil)
		So(d.EconomyRate, ShouldEqual, 0)
	})

	Convey("Given a bowler with wickets", t, func() {
		d := stats.Derive(model.RawStats{Wickets: 12, OversBowled: 40, RunsConceded: 200})

		So(d.BallsBowled, ShouldEqual, 240)
		So(d.BowlingStrikeRate, ShouldNotBeNil)
		So(*d.BowlingStrikeRate, ShouldEqual, 20)
		So(d.EconomyRate, ShouldEqual, 5)
	})

	Convey("Given a bowler without wickets", t, func() {
		d := stats.Derive(model.RawStats{OversBowled: 10.3, RunsConceded: 63})

		Convey("Then strike rate is absent while economy uses balls, not overs", func() {
			So(d.BowlingStrikeRate, ShouldBeNil)
			So(d.BallsBowled, ShouldEqual, 63)
			So(d.EconomyRate, ShouldEqual, 6)
		})
	})

	Convey("Given wickets recorded with no deliveries", t, func() {
		d := stats.Derive(model.RawStats{Wickets: 2})

		Convey("Then the strike rate is defined but zero and economy stays zero", func() {
			So(d.BowlingStrikeRate, ShouldNotBeNil)
			So(*d.BowlingStrikeRate, ShouldEqual, 0)
			So(d.EconomyRate, ShouldEqual, 0)
		})
	})
}
