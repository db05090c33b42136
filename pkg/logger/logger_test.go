package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			So(Init(), ShouldBeNil)
			So(Get(), ShouldNotBeNil)
			So(Sync(), ShouldBeNil)
		})

		Convey("When initialized with an unknown format", func() {
			err := InitWith(&bytes.Buffer{}, "xml")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWith(&buf, FormatJSON), ShouldBeNil)
		So(SetLevelString("info"), ShouldBeNil)
		ctx := context.Background()

		Convey("Then fields and the call site are written", func() {
			Get().Info(ctx, "player valued", String("player_id", "p1"), Int64("value", 700_000))
			out := buf.String()
			So(out, ShouldContainSubstring, `"msg":"player valued"`)
			So(out, ShouldContainSubstring, `"player_id":"p1"`)
			So(out, ShouldContainSubstring, `"value":700000`)
			So(out, ShouldContainSubstring, "logger_test.go")
		})

		Convey("Then errors are rendered as their message", func() {
			Get().Error(ctx, "save failed", Error(errors.New("boom")))
			So(buf.String(), ShouldContainSubstring, `"error":"boom"`)
		})

		Convey("Then named and With loggers carry their fields", func() {
			Named("ledger").With(String("user_id", "u1")).Warn(ctx, "retrying")
			out := buf.String()
			So(out, ShouldContainSubstring, `"component":"ledger"`)
			So(out, ShouldContainSubstring, `"user_id":"u1"`)
		})

		Convey("Then debug is suppressed at info level", func() {
			Get().Debug(ctx, "hidden")
			So(strings.Contains(buf.String(), "hidden"), ShouldBeFalse)
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		for _, lvl := range []string{"debug", "INFO", " warn ", "warning", "error", ""} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("loud"), ShouldNotBeNil)
		So(SetLevelString("info"), ShouldBeNil)
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := Nop()
		So(func() { l.Info(context.Background(), "ignored") }, ShouldNotPanic)
	})
}
