package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/renshu/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Backend, convey.ShouldEqual, config.BackendMemory)
			convey.So(cfg.SchemaGeneration, convey.ShouldEqual, 3)
			convey.So(cfg.FallbackCapacity, convey.ShouldEqual, 100)
			convey.So(cfg.FallbackTotalCapacity, convey.ShouldEqual, 10_000)
			convey.So(cfg.FingerprintHistory, convey.ShouldEqual, 20)
			convey.So(cfg.FingerprintWindow, convey.ShouldEqual, 5)
			convey.So(cfg.FingerprintThreshold, convey.ShouldEqual, 0.8)
			convey.So(cfg.TokenLength, convey.ShouldEqual, 32)
		})

		convey.Convey("Then durations derive from the numeric keys", func() {
			convey.So(cfg.TokenTTL(), convey.ShouldEqual, 30*24*time.Hour)
			convey.So(cfg.BackendTimeout(), convey.ShouldEqual, 3*time.Second)
			convey.So(cfg.ProbeRetry(), convey.ShouldEqual, time.Duration(0))
			convey.So(cfg.MetricsRefresh(), convey.ShouldEqual, 10*time.Second)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_ValidateFallbackBounds(t *testing.T) {
	convey.Convey("Given a total buffer bound below the per-identity bound", t, func() {
		cfg := config.New()
		cfg.FallbackCapacity = 200
		cfg.FallbackTotalCapacity = 100

		convey.Convey("Then validation fails", func() {
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestConfig_MetricLabels(t *testing.T) {
	convey.Convey("Given a metrics_labels value", t, func() {
		cfg := config.New()

		convey.Convey("When it is empty", func() {
			convey.Convey("Then no labels are produced", func() {
				convey.So(cfg.MetricLabels(), convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When it lists key=value pairs", func() {
			cfg.MetricsLabels = " env=prod, region = eu ,=orphan,,flag"

			convey.Convey("Then pairs are trimmed and incomplete entries skipped", func() {
				convey.So(cfg.MetricLabels(), convey.ShouldResemble, map[string]string{
					"env":    "prod",
					"region": "eu",
				})
			})
		})
	})

	convey.Convey("Given a non-positive metrics refresh", t, func() {
		cfg := config.New()
		cfg.MetricsRefreshMS = 0

		convey.Convey("Then validation fails", func() {
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
