package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "meetingtracker"

// HTTP metrics (counter/histogram — incremented by middleware).
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests processed.",
	}, []string{"method", "path_pattern", "status_code"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path_pattern"})
)

// Realtime pipeline counters, incremented directly by wsapi/broadcaster —
// the engagement pipeline's equivalent of the teacher's ingest counters.
var (
	WSConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_connections_total",
		Help:      "Total WebSocket connections accepted at /ws/meetings/{id}.",
	})

	WSMessagesRoutedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_messages_routed_total",
		Help:      "Inbound WebSocket messages routed, by type (the frame's type field, or invalid for undecodable JSON).",
	}, []string{"type"})

	DeltasPublishedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deltas_published_total",
		Help:      "Total delta rollups published to meeting channels by the periodic broadcaster.",
	})

	MeetingsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "meetings_created_total",
		Help:      "Total meetings created (or found) by the visit endpoint.",
	})

	MeetingsEndedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "meetings_ended_total",
		Help:      "Total end-of-meeting summaries computed by an end-watcher.",
	})

	BroadcasterTickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "broadcaster_tick_duration_seconds",
		Help:      "Duration of one periodic broadcaster tick across all active meetings.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		WSConnectionsTotal,
		WSMessagesRoutedTotal,
		DeltasPublishedTotal,
		MeetingsCreatedTotal,
		MeetingsEndedTotal,
		BroadcasterTickDuration,
	)
}

// InstrumentHandler returns middleware that records HTTP request metrics.
// It uses chi's route pattern as the path label to avoid cardinality explosion.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(sw, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unknown"
		}
		method := r.Method
		status := strconv.Itoa(sw.status)
		duration := time.Since(start).Seconds()

		HTTPRequestsTotal.WithLabelValues(method, pattern, status).Inc()
		HTTPRequestDuration.WithLabelValues(method, pattern).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code written.
// The WebSocket upgrade hijacks the connection before any status is
// written through this wrapper, so InstrumentHandler is only mounted on
// plain HTTP routes, never on /ws/meetings/{id}.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap supports http.ResponseController and middleware that check for a
// wrapped writer (e.g. http.Hijacker, needed elsewhere for the WS upgrade).
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
