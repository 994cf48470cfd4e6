package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector the service exposes on /metrics.
var Registry = prometheus.NewRegistry()

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learner_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "learner_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "route"},
	)

	SessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learner_sessions_started_total",
			Help: "Sessions moved to in_progress, by session type",
		},
		[]string{"type"},
	)

	SessionsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learner_sessions_finished_total",
			Help: "Sessions that reached a terminal status",
		},
		[]string{"status"},
	)

	SessionConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "learner_session_start_conflicts_total",
			Help: "Session starts rejected because another session is in progress",
		},
	)

	ReviewOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learner_review_outcomes_total",
			Help: "Graded outcomes applied to topic progress",
		},
		[]string{"result"}, // pass, fail, stale
	)

	ProgressRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "learner_progress_write_retries_total",
			Help: "Compare-and-swap retries on topic progress writes",
		},
	)

	ReviewsDue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "learner_reviews_due",
			Help: "Topic reviews due across all users at the last digest run",
		},
	)

	DigestUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "learner_digest_users_with_due_reviews",
			Help: "Users with at least one due review at the last digest run",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		RequestCounter,
		RequestDuration,
		SessionsStarted,
		SessionsFinished,
		SessionConflicts,
		ReviewOutcomes,
		ProgressRetries,
		ReviewsDue,
		DigestUsers,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
