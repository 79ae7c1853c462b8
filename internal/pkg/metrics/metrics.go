// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "formatrack"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		},
	)

	dispatcherRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "runs_total",
			Help:      "Scheduled-message dispatcher passes.",
		},
		[]string{"outcome"},
	)

	dispatcherMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "messages_total",
			Help:      "Scheduled messages processed by final status.",
		},
		[]string{"status"},
	)

	dispatcherRecipients = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "recipients_total",
			Help:      "Recipient rows written by the dispatcher.",
		},
	)

	dispatcherEmailsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "emails_failed_total",
			Help:      "Notification emails that could not be delivered.",
		},
	)

	dispatcherDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "run_duration_seconds",
			Help:      "Duration of dispatcher passes.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	realtimeClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "connected_clients",
			Help:      "Websocket clients currently connected to this instance.",
		},
	)

	realtimeDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "dropped_clients_total",
			Help:      "Websocket clients disconnected because their send buffer was full.",
		},
	)

	retryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "attempts_total",
			Help:      "Retries of calls to external providers.",
		},
		[]string{"operation"},
	)

	signalingSwept = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signaling",
			Name:      "swept_total",
			Help:      "Expired peers and signals removed by the sweeper.",
		},
		[]string{"kind"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		rateLimited,
		dispatcherRuns,
		dispatcherMessages,
		dispatcherRecipients,
		dispatcherEmailsFailed,
		dispatcherDuration,
		realtimeClients,
		realtimeDropped,
		retryAttempts,
		signalingSwept,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RequestStarted increments the in-flight gauge and returns the matching decrement.
func RequestStarted() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// ObserveHTTPRequest records one handled request. path should be the route
// template, not the raw URL, to keep label cardinality bounded.
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	if path == "" {
		path = "unmatched"
	}
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRateLimited counts a rejected request.
func RecordRateLimited() {
	rateLimited.Inc()
}

// DispatchStats is the outcome of one dispatcher pass.
type DispatchStats struct {
	Sent         int
	Failed       int
	Recipients   int
	EmailsFailed int
}

// RecordDispatchRun records a dispatcher pass. err is the error that aborted
// the pass, if any.
func RecordDispatchRun(stats DispatchStats, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	dispatcherRuns.WithLabelValues(outcome).Inc()
	dispatcherMessages.WithLabelValues("sent").Add(float64(stats.Sent))
	dispatcherMessages.WithLabelValues("failed").Add(float64(stats.Failed))
	dispatcherRecipients.Add(float64(stats.Recipients))
	dispatcherEmailsFailed.Add(float64(stats.EmailsFailed))
	dispatcherDuration.Observe(duration.Seconds())
}

// SetRealtimeClients sets the connected websocket client gauge.
func SetRealtimeClients(n int) {
	realtimeClients.Set(float64(n))
}

// RecordDroppedClient counts a slow websocket client that was disconnected.
func RecordDroppedClient() {
	realtimeDropped.Inc()
}

// RecordRetry counts one retry of operation.
func RecordRetry(operation string) {
	if operation == "" {
		operation = "unknown"
	}
	retryAttempts.WithLabelValues(operation).Inc()
}

// RecordSweep counts removed peers and signals.
func RecordSweep(peers, signals int) {
	signalingSwept.WithLabelValues("peers").Add(float64(peers))
	signalingSwept.WithLabelValues("signals").Add(float64(signals))
}
