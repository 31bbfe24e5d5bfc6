package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording domain events", func() {
			Convey("Then the helpers should not panic", func() {
				So(RecordSessionIssued, ShouldNotPanic)
				So(RecordSessionReplay, ShouldNotPanic)
				So(func() { RecordSubmission(OutcomeAccepted) }, ShouldNotPanic)
				So(func() { RecordChainSubmitLatency(12.5) }, ShouldNotPanic)
				So(RecordChainSubmitError, ShouldNotPanic)
				So(RecordLedgerAppend, ShouldNotPanic)
				So(RecordLedgerAppendFailure, ShouldNotPanic)
				So(func() { UpdateTrackedWallets(7) }, ShouldNotPanic)
				So(func() { RecordHTTPRequest("submit", "POST", "200") }, ShouldNotPanic)
				So(func() { RecordHTTPRequestDuration("submit", "POST", "200", 3.2) }, ShouldNotPanic)
				So(func() { RecordErrorByComponent("chain", "timeout") }, ShouldNotPanic)
			})
		})

		Convey("When fetching the registry", func() {
			Convey("Then it should expose the custom registry", func() {
				So(GetRegistry(), ShouldNotBeNil)
			})
		})
	})
}
