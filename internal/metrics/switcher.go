// Package metrics provides Prometheus metrics for the switching core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesCaptured = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studioswitch",
		Subsystem: "capture",
		Name:      "frames_total",
		Help:      "Total frames delivered by a capture feed",
	}, []string{"device_id"})

	conversionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studioswitch",
		Subsystem: "capture",
		Name:      "conversion_failures_total",
		Help:      "Frames that could not be converted to a displayable image",
	}, []string{"device_id"})

	captureRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studioswitch",
		Subsystem: "capture",
		Name:      "restarts_total",
		Help:      "Health-check driven capture session restarts",
	}, []string{"device_id"})

	activeFeeds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "studioswitch",
		Subsystem: "capture",
		Name:      "active_feeds",
		Help:      "Number of currently running capture feeds",
	})

	takes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "studioswitch",
		Subsystem: "switcher",
		Name:      "takes_total",
		Help:      "Total take (cut) operations",
	})

	transitions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "studioswitch",
		Subsystem: "switcher",
		Name:      "transitions_total",
		Help:      "Total timed transitions started",
	})

	transitionsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "studioswitch",
		Subsystem: "switcher",
		Name:      "transitions_cancelled_total",
		Help:      "Transitions cancelled before completing",
	})

	effectApplySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "studioswitch",
		Subsystem: "effects",
		Name:      "apply_seconds",
		Help:      "Wall time spent applying an effect chain to one frame",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"chain"})

	renderFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studioswitch",
		Subsystem: "effects",
		Name:      "render_failures_total",
		Help:      "Effect round trips that degraded to the untransformed image",
	}, []string{"chain"})
)

// IncFramesCaptured records one delivered frame for a device.
func IncFramesCaptured(deviceID string) {
	framesCaptured.WithLabelValues(deviceID).Inc()
}

// IncConversionFailure records a frame that produced no image.
func IncConversionFailure(deviceID string) {
	conversionFailures.WithLabelValues(deviceID).Inc()
}

// IncCaptureRestart records a health-check restart for a device.
func IncCaptureRestart(deviceID string) {
	captureRestarts.WithLabelValues(deviceID).Inc()
}

// SetActiveFeeds records the current number of running feeds.
func SetActiveFeeds(n int) {
	activeFeeds.Set(float64(n))
}

// IncTakes records a take operation.
func IncTakes() {
	takes.Inc()
}

// IncTransitions records a started transition.
func IncTransitions() {
	transitions.Inc()
}

// IncTransitionsCancelled records a cancelled transition.
func IncTransitionsCancelled() {
	transitionsCancelled.Inc()
}

// ObserveEffectApply records the duration of one chain application.
func ObserveEffectApply(chain string, seconds float64) {
	effectApplySeconds.WithLabelValues(chain).Observe(seconds)
}

// IncRenderFailure records a degraded effect round trip.
func IncRenderFailure(chain string) {
	renderFailures.WithLabelValues(chain).Inc()
}
