// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// EventsHandled tracks delivered events by handler and outcome.
	EventsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reactor_events_handled_total",
			Help: "Delivered events by handler and outcome",
		},
		[]string{"handler", "outcome"},
	)

	// EventDuration tracks handler latency.
	EventDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reactor_event_duration_seconds",
			Help:    "Event handler duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"handler"},
	)

	// EventsInFlight tracks events currently being handled.
	EventsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reactor_events_in_flight",
			Help: "Events currently being handled",
		},
	)

	// CounterWrites tracks counter mutations by counter and result.
	CounterWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reactor_counter_writes_total",
			Help: "Counter delta applications by counter and result",
		},
		[]string{"counter", "result"},
	)

	// CounterClamped tracks writes that hit the zero floor.
	CounterClamped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reactor_counter_clamped_total",
			Help: "Counter writes clamped at zero",
		},
		[]string{"counter"},
	)

	// RateLimitDecisions tracks limiter decisions per action.
	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reactor_rate_limit_decisions_total",
			Help: "Rate limiter decisions by action",
		},
		[]string{"action", "decision"},
	)

	// PushSends tracks multicast requests by notification kind and result.
	PushSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_multicast_requests_total",
			Help: "Multicast requests sent to the push gateway",
		},
		[]string{"kind", "result"},
	)

	// PushDeliveries tracks per-token verdicts.
	PushDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_deliveries_total",
			Help: "Per-token delivery verdicts",
		},
		[]string{"kind", "status"},
	)

	// PushFailures tracks failed deliveries by error code.
	PushFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_failures_total",
			Help: "Failed deliveries by gateway error code",
		},
		[]string{"kind", "code"},
	)

	// TokensPruned tracks destination tokens removed after gateway feedback.
	TokensPruned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_tokens_pruned_total",
			Help: "Destination tokens pruned after gateway feedback",
		},
		[]string{"kind"},
	)

	// NotificationsSkipped tracks dispatches aborted before the gateway call.
	NotificationsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_notifications_skipped_total",
			Help: "Notifications skipped before dispatch",
		},
		[]string{"kind", "reason"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordEvent records the outcome of one handler invocation.
func RecordEvent(handler, outcome string, duration float64) {
	EventsHandled.WithLabelValues(handler, outcome).Inc()
	EventDuration.WithLabelValues(handler).Observe(duration)
}

// RecordRateLimit records a limiter decision.
func RecordRateLimit(action string, allowed bool) {
	decision := "allowed"
	if !allowed {
		decision = "denied"
	}
	RateLimitDecisions.WithLabelValues(action, decision).Inc()
}

// RecordPushResult records the per-token breakdown of one multicast request.
func RecordPushResult(kind string, successes, failures int, byCode map[string]int) {
	PushSends.WithLabelValues(kind, "sent").Inc()
	PushDeliveries.WithLabelValues(kind, "success").Add(float64(successes))
	PushDeliveries.WithLabelValues(kind, "failure").Add(float64(failures))
	for code, n := range byCode {
		PushFailures.WithLabelValues(kind, code).Add(float64(n))
	}
}
