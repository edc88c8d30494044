package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	RecommendationTier = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_scoring_tier_total",
			Help: "Scoring requests by the cascade tier they ended in",
		},
		[]string{"tier"},
	)

	EnsembleConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_ensemble_confidence",
			Help:    "Ensemble confidence per scoring request",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	MLSourceCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ml_source_calls_total",
			Help: "Prediction source calls by outcome",
		},
		[]string{"source", "outcome"},
	)

	MLSourceLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ml_source_latency_seconds",
			Help:    "Prediction source latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	MLSourceBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ml_source_circuit_breaker_state",
			Help: "Circuit breaker state per source (0=closed, 1=half-open, 2=open)",
		},
		[]string{"source"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_cache_lookups_total",
			Help: "Recommendation cache lookups by result",
		},
		[]string{"result"},
	)

	FakeReviewFlags = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fake_review_flags_total",
			Help: "Suspicious review indicators raised",
		},
		[]string{"reason"},
	)

	VenueRiskTier = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_risk_tier_total",
			Help: "Negative feedback analyses by resulting risk tier",
		},
		[]string{"tier"},
	)
)
