package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "thehub")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options are applied", func() {
				So(manager.namespace, ShouldEqual, "test_namespace")
				So(manager.subsystem, ShouldEqual, "test_subsystem")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
			})
		})

		Convey("When creating with empty option values", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "thehub")
				So(manager.subsystem, ShouldEqual, "engine")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording rule outcomes", func() {
			before := testutil.ToFloat64(globalManager.rulesSkipped.WithLabelValues("base_not_applicable"))
			RecordRuleEvaluated()
			RecordRuleApplied()
			RecordRuleSkipped("base_not_applicable")

			Convey("Then the labelled counter moves", func() {
				after := testutil.ToFloat64(globalManager.rulesSkipped.WithLabelValues("base_not_applicable"))
				So(after-before, ShouldEqual, 1)
			})
		})

		Convey("When recording catalog lookups", func() {
			before := testutil.ToFloat64(globalManager.catalogLookups.WithLabelValues("not_found"))
			RecordCatalogLookup("not_found", 12)
			RecordCatalogCacheHit()
			RecordCatalogCacheMiss()
			RecordCatalogCacheEviction()
			UpdateCatalogCacheSize(3)

			Convey("Then the outcome counter and gauge reflect it", func() {
				So(testutil.ToFloat64(globalManager.catalogLookups.WithLabelValues("not_found"))-before, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.catalogCacheSize), ShouldEqual, 3)
			})
		})

		Convey("When recording everything else", func() {
			So(func() {
				RecordRecommendations(2)
				RecordRecommendationLatency(4.5)
				RecordProductsRecommended(3)
				RecordStoreLoadLatency("rules", 1)
				RecordStoreError("rules")
				RecordHTTPRequest("recommendations", "POST", "200")
				RecordHTTPRequestDuration("recommendations", "POST", "200", 3)
				UpdateQueueSize(1)
				UpdateQueueCapacity(10)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError("queue_full")
				UpdateWorkerCount(4)
				RecordWorkerProcessingLatency(2)
				RecordInlineFallback()
				RecordErrorByComponent("planner", "lookup_failed")
				RecordErrorByEndpoint("recommendations", "POST", "server_error")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		RecordRuleEvaluated()
		families, err := GetRegistry().Gather()

		Convey("Then it exposes namespaced families only", func() {
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
			for _, f := range families {
				So(strings.HasPrefix(f.GetName(), "thehub_engine_"), ShouldBeTrue)
			}
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		before := testutil.ToFloat64(globalManager.rulesEvaluated)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				RecordRuleEvaluated()
			}()
		}
		wg.Wait()

		So(testutil.ToFloat64(globalManager.rulesEvaluated)-before, ShouldEqual, 50)
	})
}
