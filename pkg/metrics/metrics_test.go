package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("cache"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the custom names", func() {
				m.RecordCacheLookup("hit")
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_cache_cache_lookups_total"], ShouldBeTrue)
			})
		})

		Convey("When empty options are passed", func() {
			m := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(m.namespace, ShouldEqual, "guestrank")
				So(m.subsystem, ShouldEqual, "importance")
				So(len(m.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestManagerRecording(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("When recording cache lookups", func() {
			m.RecordCacheLookup("hit")
			m.RecordCacheLookup("hit")
			m.RecordCacheLookup("expired")

			Convey("Then counts are tracked per reason", func() {
				So(testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.cacheLookups.WithLabelValues("expired")), ShouldEqual, 1)
			})
		})

		Convey("When recording a batch", func() {
			m.RecordBatch(5, 3, 2, 12.5)

			Convey("Then success and failure guests are split", func() {
				So(testutil.ToFloat64(m.batchGuests.WithLabelValues("success")), ShouldEqual, 3)
				So(testutil.ToFloat64(m.batchGuests.WithLabelValues("failure")), ShouldEqual, 2)
			})
		})

		Convey("When recording scorer activity", func() {
			m.RecordScorerCall(42)
			m.RecordScorerError("unavailable")

			Convey("Then calls and errors are counted", func() {
				So(testutil.ToFloat64(m.scorerCalls), ShouldEqual, 1)
				So(testutil.ToFloat64(m.scorerErrors.WithLabelValues("unavailable")), ShouldEqual, 1)
			})
		})

		Convey("When updating queue gauges", func() {
			m.UpdateQueue(7, 100)
			m.RecordQueueRejected()

			Convey("Then gauges hold the latest values", func() {
				So(testutil.ToFloat64(m.queueSize), ShouldEqual, 7)
				So(testutil.ToFloat64(m.queueCapacity), ShouldEqual, 100)
				So(testutil.ToFloat64(m.queueRejected), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a disabled manager", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))

		Convey("When recording", func() {
			m.RecordCacheLookup("hit")
			m.RecordHTTPRequest("/x", "GET", "200", 1)

			Convey("Then nothing is counted", func() {
				So(testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")), ShouldEqual, 0)
			})
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Then the helpers do not panic", func() {
			So(func() {
				RecordCacheLookup("missing")
				RecordInflightShared()
				RecordScorerCall(1)
				RecordScorerError("invalid_input")
				RecordStoreLatency("get_metadata", 1)
				RecordStoreError("put_metadata")
				RecordBatch(1, 1, 0, 1)
				UpdateQueue(0, 10)
				RecordQueueRejected()
				UpdateWorkerCount(2)
				RecordWorkerJob("success")
				RecordHTTPRequest("/healthz", "GET", "200", 1)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
