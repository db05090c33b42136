package model_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/fantasycricket/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseRole(t *testing.T) {
	Convey("Given role strings", t, func() {
		cases := map[string]model.Role{
			"Batsman":     model.RoleBatsman,
			" bowler ":    model.RoleBowler,
			"All-Rounder": model.RoleAllRounder,
			"allrounder":  model.RoleAllRounder,
		}
		for in, want := range cases {
			got, err := model.ParseRole(in)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}

		Convey("Then unknown roles are invalid input", func() {
			_, err := model.ParseRole("wicketkeeper")
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			So(model.CodeOf(err), ShouldEqual, "unknown_role")
		})
	})
}

func TestPlayerFilter(t *testing.T) {
	Convey("Given a player", t, func() {
		p := model.Player{Name: "Rohit Sharma", Affiliation: "Mumbai", Role: model.RoleBatsman, Seed: true}

		So(model.PlayerFilter{}.Match(p), ShouldBeTrue)
		So(model.PlayerFilter{Role: model.RoleBatsman}.Match(p), ShouldBeTrue)
		So(model.PlayerFilter{Role: model.RoleBowler}.Match(p), ShouldBeFalse)
		So(model.PlayerFilter{Affiliation: "mumbai"}.Match(p), ShouldBeTrue)
		So(model.PlayerFilter{NameContains: "SHARMA"}.Match(p), ShouldBeTrue)
		So(model.PlayerFilter{NameContains: "kohli"}.Match(p), ShouldBeFalse)
		So(model.PlayerFilter{SeedOnly: true}.Match(p), ShouldBeTrue)
	})
}

func TestUserRoster(t *testing.T) {
	Convey("Given a user with two roster entries", t, func() {
		u := model.User{
			ID:     "u1",
			Budget: 8_000_000,
			Roster: []model.RosterEntry{{PlayerID: "a", Value: 700_000}, {PlayerID: "b", Value: 300_000}},
		}

		So(u.HasPlayer("a"), ShouldBeTrue)
		So(u.HasPlayer("z"), ShouldBeFalse)
		So(u.RosterValue(), ShouldEqual, 1_000_000)

		e, ok := u.Entry("b")
		So(ok, ShouldBeTrue)
		So(e.Value, ShouldEqual, 300_000)

		Convey("Then WithoutPlayer and Clone do not alias the original", func() {
			rest := u.WithoutPlayer("a")
			So(rest, ShouldHaveLength, 1)
			So(u.Roster, ShouldHaveLength, 2)

			c := u.Clone()
			c.Roster[0].Value = 1
			So(u.Roster[0].Value, ShouldEqual, 700_000)
		})
	})
}

func TestReason(t *testing.T) {
	Convey("Given a reason wrapped with context", t, func() {
		r := model.NewReason(model.ErrPrecondition, "roster_full", "roster is full")
		err := fmt.Errorf("add player: %w", r)

		So(errors.Is(err, r), ShouldBeTrue)
		So(errors.Is(err, model.ErrPrecondition), ShouldBeTrue)
		So(errors.Is(err, model.ErrNotFound), ShouldBeFalse)
		So(model.CodeOf(err), ShouldEqual, "roster_full")
		So(model.CodeOf(errors.New("plain")), ShouldEqual, "")
	})
}

func TestRawStatsValidate(t *testing.T) {
	Convey("Given raw statistics", t, func() {
		So(model.RawStats{}.Validate(), ShouldBeNil)
		So(model.RawStats{TotalRuns: 500, BallsFaced: 400, InningsPlayed: 10, OversBowled: 10.5}.Validate(), ShouldBeNil)

		Convey("Then negative counters are invalid input", func() {
			err := model.RawStats{Wickets: -1}.Validate()
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			So(model.CodeOf(err), ShouldEqual, "invalid_stats")
		})

		Convey("Then an over with more than five extra balls is rejected", func() {
			So(model.RawStats{OversBowled: 10.6}.Validate(), ShouldNotBeNil)
			So(model.RawStats{OversBowled: -0.1}.Validate(), ShouldNotBeNil)
		})
	})
}
