package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IntentsRecognized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "theater_intents_recognized_total",
			Help: "Total number of recognized intents by intent name and source (tool or text)",
		},
		[]string{"intent", "source"},
	)

	IntentRequestsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "theater_intent_requests_failed_total",
			Help: "Total number of intent requests that ended in an error response",
		},
		[]string{"error_code"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "theater_llm_request_duration_seconds",
			Help:    "Duration of model requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	LLMRequestsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "theater_llm_requests_failed_total",
			Help: "Total number of failed model requests by provider and error code",
		},
		[]string{"provider", "error_code"},
	)

	HistoryTrims = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "theater_history_trims_total",
			Help: "Number of times a dialogue history was trimmed to its window",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "theater_active_sessions",
			Help: "Number of dialogue sessions cached in memory",
		},
	)
)
