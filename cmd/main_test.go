package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/okian/renshu/internal/adapters/http/api"
	app "github.com/okian/renshu/internal/app"
	"github.com/okian/renshu/internal/config"
	"github.com/okian/renshu/pkg/logger"
	"github.com/okian/renshu/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainWiring(t *testing.T) {
	convey.Convey("Given configuration from the environment", t, func() {
		_ = os.Setenv("RENSHU_ADDR", ":8080")
		_ = os.Setenv("RENSHU_BACKEND", "memory")
		_ = os.Setenv("RENSHU_SCHEMA_GENERATION", "2")
		defer func() {
			_ = os.Unsetenv("RENSHU_ADDR")
			_ = os.Unsetenv("RENSHU_BACKEND")
			_ = os.Unsetenv("RENSHU_SCHEMA_GENERATION")
		}()

		ctx := context.Background()
		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":8080")

		convey.Convey("When the store and service are built from it", func() {
			store, backend := openStore(ctx, cfg, logger.Nop())
			svc := app.New(serviceOptions(cfg, backend, store, logger.Nop())...)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			convey.Convey("Then the service reports the configured backend", func() {
				st := svc.Status()
				convey.So(backend, convey.ShouldEqual, config.BackendMemory)
				convey.So(st.Backend, convey.ShouldEqual, config.BackendMemory)
				convey.So(int(st.History.Generation), convey.ShouldEqual, 2)
				convey.So(st.History.Available, convey.ShouldBeTrue)
			})

			convey.Convey("Then the HTTP routes are served", func() {
				mux := http.NewServeMux()
				api.NewServer(svc).Register(ctx, mux)

				for _, path := range []string{"/healthz", "/status", "/session"} {
					rec := httptest.NewRecorder()
					mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
					convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				}
			})
		})

		convey.Convey("When no backend is configured", func() {
			cfg.Backend = config.BackendNone
			store, backend := openStore(ctx, cfg, logger.Nop())
			convey.So(store, convey.ShouldBeNil)
			convey.So(backend, convey.ShouldEqual, config.BackendNone)
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Updating system metrics does not panic", t, func() {
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)
	})
}

func TestMetricsOptions(t *testing.T) {
	convey.Convey("Given metrics keys in the config", t, func() {
		cfg := config.New()
		cfg.MetricsPrefix = "edge"
		cfg.MetricsLabels = "region=eu"
		cfg.MetricsRefreshMS = 1500

		metrics.Configure(metricsOptions(cfg)...)
		convey.Reset(func() { metrics.Configure() })

		convey.Convey("Then the global manager follows them", func() {
			convey.So(metrics.RefreshInterval(), convey.ShouldEqual, 1500*time.Millisecond)

			metrics.RecordTaxonomyMiss()
			families, err := metrics.GetRegistry().Gather()
			convey.So(err, convey.ShouldBeNil)

			found := false
			for _, f := range families {
				if f.GetName() != "renshu_practice_edge_taxonomy_misses_total" {
					continue
				}
				found = true
				labels := f.GetMetric()[0].GetLabel()
				convey.So(labels, convey.ShouldHaveLength, 1)
				convey.So(labels[0].GetName(), convey.ShouldEqual, "region")
				convey.So(labels[0].GetValue(), convey.ShouldEqual, "eu")
			}
			convey.So(found, convey.ShouldBeTrue)
		})
	})
}
