package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initializing with defaults", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get returns a usable logger", func() {
				l := Get()
				So(l, ShouldNotBeNil)
				So(func() { l.Info(context.Background(), "hello", String("k", "v")) }, ShouldNotPanic)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initializing with an unknown format", func() {
			err := InitWithOptions(Options{Format: "xml"})

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "unknown log format")
			})
		})
	})
}

func TestLoggerJSONOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithOptions(Options{Format: "json", Writer: &buf}), ShouldBeNil)
		So(SetLevelString("info"), ShouldBeNil)
		defer func() { _ = Init() }()

		Convey("When logging with fields and a named child", func() {
			Named("analyzer").With(String("guest_id", "g1")).Warn(context.Background(), "scorer slow",
				Int("attempt", 2),
				Bool("forced", true),
				Error(errors.New("boom")),
			)

			Convey("Then every field ends up in the record", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "scorer slow")
				So(rec["logger"], ShouldEqual, "analyzer")
				So(rec["guest_id"], ShouldEqual, "g1")
				So(rec["attempt"], ShouldEqual, float64(2))
				So(rec["forced"], ShouldEqual, true)
				So(rec["error"], ShouldEqual, "boom")
			})
		})

		Convey("When logging below the configured level", func() {
			Get().Debug(context.Background(), "hidden")

			Convey("Then nothing is written", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		for _, lvl := range []string{"debug", "INFO", " warn ", "warning", "error", ""} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		err := SetLevelString("verbose")
		So(err, ShouldNotBeNil)
		So(strings.Contains(err.Error(), "verbose"), ShouldBeTrue)
		_ = SetLevelString("info")
	})
}

func TestNop(t *testing.T) {
	Convey("Given a no-op logger", t, func() {
		l := Nop()
		So(func() {
			l.Error(context.Background(), "ignored")
			l.Named("x").With(Any("k", 1)).Info(nil, "ignored") //nolint:staticcheck // nil ctx tolerated
		}, ShouldNotPanic)
	})
}
