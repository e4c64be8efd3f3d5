// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedback_cache_hits_total",
			Help: "Total number of retrieval requests served from the cache",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedback_cache_misses_total",
			Help: "Total number of retrieval requests that missed the cache",
		},
	)

	CacheBackendFaults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_cache_backend_faults_total",
			Help: "Total number of cache backend faults absorbed by the fail-open path",
		},
		[]string{"operation"},
	)

	RetrievalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "feedback_retrieval_duration_seconds",
			Help: "Duration of result retrieval in seconds",
		},
		[]string{"retrieved_from"},
	)

	RetrievalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_retrieval_requests_total",
			Help: "Total number of retrieval requests by result status",
		},
		[]string{"status"},
	)

	IntakeSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_intake_submissions_total",
			Help: "Total number of intake submissions by outcome",
		},
		[]string{"outcome"},
	)

	AnalysisJobsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedback_analysis_jobs_completed_total",
			Help: "Total number of analysis jobs completed by the worker",
		},
	)

	AnalysisJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_analysis_jobs_failed_total",
			Help: "Total number of analysis jobs failed by the worker",
		},
		[]string{"reason"},
	)

	AnalysisJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "feedback_analysis_job_duration_seconds",
			Help: "Duration of analysis job processing in seconds",
		},
	)
)
