// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration observes handler latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "route", "status"},
	)

	// AdvisorCallLatency observes LLM round trips in seconds.
	AdvisorCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "advisor_call_duration_seconds",
			Help:    "Advice generator call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"operation", "status"},
	)

	// ChatSessions counts session lifecycle events.
	ChatSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_sessions_total",
			Help: "Chat sessions started and ended",
		},
		[]string{"event"}, // started, ended
	)

	// ChatTurns counts handled chat messages by the stage they were handled in.
	ChatTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Chat messages handled, by stage and outcome",
		},
		[]string{"stage", "outcome"}, // outcome: ok, fallback
	)
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, statusClass(status)).Observe(d.Seconds())
}

// RecordAdvisorCall records one advice generator call.
func RecordAdvisorCall(operation, status string, d time.Duration) {
	AdvisorCallLatency.WithLabelValues(operation, status).Observe(d.Seconds())
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	}
	return "2xx"
}
