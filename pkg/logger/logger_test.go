package logger_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/okian/rescore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNew(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		log := logger.New(&buf, slog.LevelInfo)
		ctx := context.Background()

		Convey("When logging an info line with fields", func() {
			log.Info(ctx, "run started", logger.Int("total_rows", 1200), logger.String("table", "talent_scores"))

			Convey("Then the line should contain the message and fields", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "run started")
				So(out, ShouldContainSubstring, "total_rows=1200")
				So(out, ShouldContainSubstring, "table=talent_scores")
			})
		})

		Convey("When logging below the configured level", func() {
			log.Debug(ctx, "page fetched")

			Convey("Then nothing should be written", func() {
				So(buf.String(), ShouldBeEmpty)
			})
		})

		Convey("When logging an error field", func() {
			log.Error(ctx, "batch failed", logger.Error(errors.New("boom")))

			Convey("Then the error should appear in the output", func() {
				So(buf.String(), ShouldContainSubstring, "error=boom")
			})
		})

		Convey("When using a named logger", func() {
			log.Named("scheduler").Warn(ctx, "wave had failures", logger.Int("failed", 2))

			Convey("Then field keys should carry the group name", func() {
				So(buf.String(), ShouldContainSubstring, "scheduler.failed=2")
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given the global logger", t, func() {
		So(logger.Init(), ShouldBeNil)

		Convey("When setting known levels", func() {
			for _, lvl := range []string{"debug", "info", "warn", "warning", "error", ""} {
				So(logger.SetLevelString(lvl), ShouldBeNil)
			}
		})

		Convey("When setting an unknown level", func() {
			err := logger.SetLevelString("loud")

			Convey("Then it should return an error", func() {
				So(err, ShouldNotBeNil)
				So(strings.Contains(err.Error(), "unknown log level"), ShouldBeTrue)
			})
		})
	})
}
