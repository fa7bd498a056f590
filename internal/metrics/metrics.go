package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sync"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_errors_total",
			Help: "Logged errors and degraded reads by error type.",
		},
		[]string{"type", "severity"},
	)
	EventsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_events_recorded_total",
			Help: "Total number of interaction events written to the event log.",
		},
		[]string{"kind"},
	)
	EventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_events_dropped_total",
			Help: "Total number of interaction events that could not be recorded.",
		},
		[]string{"kind"},
	)
	SimilarityRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommender_similarity_run_duration_seconds",
			Help:    "Duration of each similarity matrix run in seconds.",
			Buckets: []float64{1, 10, 60, 300, 900, 1800, 3600},
		},
		[]string{"matrix"},
	)
	SimilarityEdgesWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_similarity_edges_written_total",
			Help: "Total number of neighbor edges persisted to the similarity cache.",
		},
		[]string{"matrix"},
	)
	SimilaritySubjectFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_similarity_subject_failures_total",
			Help: "Total number of subjects whose neighbor computation or persist failed.",
		},
		[]string{"matrix"},
	)
	RankingDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "recommender_ranking_duration_seconds",
			Help:       "Duration of each ranking request.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"direction"},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recommender_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open).",
		},
		[]string{"name"},
	)
)

var registerOnce sync.Once

// Register adds all collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ErrorsCounter)
		prometheus.MustRegister(EventsRecorded)
		prometheus.MustRegister(EventsDropped)
		prometheus.MustRegister(SimilarityRunDuration)
		prometheus.MustRegister(SimilarityEdgesWritten)
		prometheus.MustRegister(SimilaritySubjectFailures)
		prometheus.MustRegister(RankingDuration)
		prometheus.MustRegister(CircuitBreakerState)
	})
}
