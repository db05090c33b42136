package valuation_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/okian/fantasycricket/internal/domain/model"
	"github.com/okian/fantasycricket/internal/domain/valuation"
	. "github.com/smartystreets/goconvey/convey"
)

func batsman(runs, balls, innings int) model.Player {
	return model.Player{
		ID:   "p1",
		Name: "Test Batsman",
		Role: model.RoleBatsman,
		Stats: model.RawStats{
			TotalRuns:     runs,
			BallsFaced:    balls,
			InningsPlayed: innings,
		},
	}
}

func TestQuote(t *testing.T) {
	Convey("Given a default engine", t, func() {
		e := valuation.New()

		Convey("When the player has no recorded activity", func() {
			q := e.Quote(model.Player{Name: "Nobody"})

			Convey("Then the floor applies", func() {
				So(q.Value, ShouldEqual, 100_000)
				So(q.Source, ShouldEqual, valuation.SourceFloor)
				So(q.Score, ShouldEqual, 0)
			})
		})

		Convey("When the player scores 65", func() {
			q := e.Quote(batsman(500, 400, 10))

			Convey("Then 685,000 rounds to 700,000", func() {
				So(q.Value, ShouldEqual, 700_000)
				So(q.Source, ShouldEqual, valuation.SourceComputed)
				So(q.Score, ShouldEqual, 65)
			})
		})

		Convey("When the quotient lands exactly on a half step", func() {
			// (9*25+100)*1000 = 325,000 = 6.5 steps
			So(e.FromScore(25), ShouldEqual, 350_000)
		})

		Convey("When the player already carries a stored value", func() {
			p := batsman(500, 400, 10)
			p.Value = 700_000
			p.Stats.TotalRuns = 5000

			Convey("Then the stored value wins even though stats changed", func() {
				q := e.Quote(p)
				So(q.Value, ShouldEqual, 700_000)
				So(q.Source, ShouldEqual, valuation.SourceLocked)
				So(e.Value(p), ShouldEqual, e.Value(p))
			})
		})
	})

	Convey("Given an engine with locking disabled", t, func() {
		e := valuation.New(valuation.WithLocking(false))
		p := batsman(500, 400, 10)
		p.Value = 5_000_000

		Convey("Then the stored value is ignored", func() {
			So(e.Value(p), ShouldEqual, 700_000)
		})
	})

	Convey("Given a name override", t, func() {
		e := valuation.New(valuation.WithOverrides(map[string]int64{"Legacy  Star": 2_000_000}))

		Convey("When the name matches with different case and spacing", func() {
			p := batsman(1, 100, 1)
			p.Name = "legacy star"
			q := e.Quote(p)

			Convey("Then the override amount is returned", func() {
				So(q.Value, ShouldEqual, 2_000_000)
				So(q.Source, ShouldEqual, valuation.SourceOverride)
			})
		})

		Convey("When a locked value exists it still takes precedence", func() {
			p := batsman(1, 100, 1)
			p.Name = "Legacy Star"
			p.Value = 150_000
			So(e.Value(p), ShouldEqual, 150_000)
		})
	})

	Convey("Given a floor above the computed value", t, func() {
		e := valuation.New(valuation.WithFloor(500_000))

		Convey("Then the floor is never undercut", func() {
			So(e.FromScore(10), ShouldEqual, 500_000)
			So(e.Floor(), ShouldEqual, 500_000)
			So(e.Step(), ShouldEqual, 50_000)
		})
	})
}

func TestRoundingLaw(t *testing.T) {
	Convey("Given many random scores", t, func() {
		e := valuation.New()
		r := rand.New(rand.NewPCG(7, 11))

		Convey("Then every value is a multiple of 50,000 and at least 100,000", func() {
			for range 5000 {
				s := r.Float64()*400 - 20
				v := e.FromScore(s)
				So(v%50_000, ShouldEqual, 0)
				So(v, ShouldBeGreaterThanOrEqualTo, 100_000)
			}
		})
	})
}

func TestHugeScores(t *testing.T) {
	Convey("Given scores beyond what an int64 can price", t, func() {
		e := valuation.New()
		ceiling := int64(math.MaxInt64 / 50_000 * 50_000)

		Convey("Then the value saturates instead of wrapping to the floor", func() {
			for _, s := range []float64{1e16, 1e300, math.MaxFloat64} {
				v := e.FromScore(s)
				So(v, ShouldEqual, ceiling)
				So(v%50_000, ShouldEqual, 0)
			}
		})

		Convey("Then a just-representable score still rounds normally", func() {
			So(e.FromScore(1e9), ShouldEqual, int64(9_000_000_100_000))
		})

		Convey("Then an absurd wicket tally is quoted as computed at the ceiling", func() {
			q := e.Quote(model.Player{
				Name: "Outlier",
				Role: model.RoleBowler,
				Stats: model.RawStats{
					InningsPlayed: 1,
					Wickets:       1_000_000_000_000_000_000,
					OversBowled:   0.1,
				},
			})
			So(q.Source, ShouldEqual, valuation.SourceComputed)
			So(q.Value, ShouldEqual, ceiling)
			So(q.Value, ShouldBeGreaterThan, valuation.DefaultFloor)
		})
	})
}
