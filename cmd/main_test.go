package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/okian/fantasycricket/internal/config"
	"github.com/okian/fantasycricket/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When configuration comes from the environment", func() {
			t.Setenv("FANTASY_ADDR", ":8080")
			t.Setenv("FANTASY_ROSTER_SIZE", "5")
			t.Setenv("FANTASY_STARTING_BUDGET", "4000000")

			convey.Convey("Then the overrides are applied on top of defaults", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.RosterSize, convey.ShouldEqual, 5)
				convey.So(cfg.StartingBudget, convey.ShouldEqual, 4_000_000)
				convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 100)
			})
		})

		convey.Convey("When building the HTTP server", func() {
			srv := newHTTPServer(":0", http.NotFoundHandler())

			convey.Convey("Then the timeouts are set", func() {
				convey.So(srv.ReadTimeout, convey.ShouldEqual, readTimeout)
				convey.So(srv.WriteTimeout, convey.ShouldEqual, writeTimeout)
				convey.So(srv.IdleTimeout, convey.ShouldEqual, idleTimeout)
				convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a memory-backed configuration", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg, logger.Nop()) }()
			time.Sleep(50 * time.Millisecond)
			cancel()

			convey.Convey("Then run shuts down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("run did not return")
				}
			})
		})

		convey.Convey("When the address is unusable", func() {
			cfg.Addr = "256.0.0.1:bad"

			convey.Convey("Then run reports the listen error", func() {
				err := run(context.Background(), cfg, logger.Nop())
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}
