package config_test

import (
	"errors"
	"testing"

	"github.com/okian/fantasycricket/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should carry the league defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StartingBudget, convey.ShouldEqual, 9_000_000)
			convey.So(cfg.RosterSize, convey.ShouldEqual, 11)
			convey.So(cfg.ValueFloor, convey.ShouldEqual, 100_000)
			convey.So(cfg.ValueStep, convey.ShouldEqual, 50_000)
			convey.So(cfg.LockValues, convey.ShouldBeTrue)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When the floor is not a multiple of the step", func() {
			cfg.ValueFloor = 120_000
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When an override is off the value grid", func() {
			cfg.ValueOverrides = map[string]int64{"Legacy Player": 1_234_567}
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "Legacy Player")
		})

		convey.Convey("When the roster size is zero", func() {
			cfg.RosterSize = 0
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the starting budget is negative", func() {
			cfg.StartingBudget = -1
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
