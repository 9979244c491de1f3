package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithMetricPrefix("x"),
				WithHistogramBuckets([]float64{1, 10}),
				WithRefreshInterval(time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.identityResolutions.WithLabelValues("email").Inc()

			Convey("Then collectors are registered under the configured names", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_unit_x_identity_resolutions_total"], ShouldBeTrue)
				So(manager.refreshInterval, ShouldEqual, time.Second)
				So(manager.Enabled(), ShouldBeTrue)
			})
		})

		Convey("When empty options are supplied", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithNamespace(""), WithHistogramBuckets(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "renshu")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		before := sample("renshu_practice_history_writes_total", "buffered")

		RecordHistoryWrite("buffered")
		RecordHistoryFallback("backend_unavailable")
		RecordResolution("fingerprint")
		RecordTokenMinted("session")
		RecordTokensRevoked(2)
		RecordTokensExpired(0)
		RecordBackendLatency("insert", 3*time.Millisecond)
		UpdateBackendAvailable(true)
		UpdateBufferRecords(7)
		UpdateTokensLive(3)
		RecordTaxonomyMiss()
		RecordDuplicateSubmission()
		RecordHistoryRead("merged")

		Convey("Then the counters and gauges move", func() {
			So(sample("renshu_practice_history_writes_total", "buffered"), ShouldEqual, before+1)
			So(sample("renshu_practice_fallback_buffer_records"), ShouldEqual, 7)
			So(sample("renshu_practice_backend_available"), ShouldEqual, 1)
			So(sample("renshu_practice_tokens_live"), ShouldEqual, 3)
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})

		Convey("Then the custom registry exposes them", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}

// sample reads one counter or gauge value from the global registry. The
// metric must carry every given label value.
func sample(name string, labelValues ...string) float64 {
	families, err := GetRegistry().Gather()
	if err != nil {
		return -1
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if !hasLabelValues(m.GetLabel(), labelValues) {
				continue
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func hasLabelValues[L interface{ GetValue() string }](pairs []L, want []string) bool {
	for _, w := range want {
		found := false
		for _, p := range pairs {
			if p.GetValue() == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func TestConfigure(t *testing.T) {
	Convey("Given a reconfigured global manager", t, func() {
		Configure(
			WithMetricPrefix("edge"),
			WithCustomLabels(map[string]string{"region": "eu"}),
			WithRefreshInterval(2*time.Second),
		)
		Reset(func() { Configure() })

		RecordHistoryWrite("stored")

		Convey("Then the new registry carries the prefix and labels", func() {
			So(sample("renshu_practice_edge_history_writes_total", "stored", "eu"), ShouldEqual, 1)
			So(sample("renshu_practice_history_writes_total", "stored"), ShouldEqual, 0)
		})

		Convey("Then the refresh interval follows the option", func() {
			So(RefreshInterval(), ShouldEqual, 2*time.Second)
		})
	})

	Convey("Given Configure without options", t, func() {
		Configure()

		Convey("Then the defaults come back", func() {
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			So(globalManager.metricPrefix, ShouldBeEmpty)
		})
	})
}
