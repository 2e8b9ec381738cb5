package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	apiRequestsTotal       *prometheus.CounterVec
	apiLatencySeconds      *prometheus.HistogramVec
	apiErrorsTotal         *prometheus.CounterVec
	gradeWritesTotal       *prometheus.CounterVec
	suggestionsTotal       *prometheus.CounterVec
	projectsGeneratedTotal *prometheus.CounterVec
	gradeStreamClients     prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the hub API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_api_requests_total",
			Help: "Total number of hub API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hub_api_latency_seconds",
			Help:    "Latency distribution for hub API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 30.0, 120.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_api_errors_total",
			Help: "Total number of error responses returned by hub endpoints.",
		}, []string{"method", "route", "status"})

		gradeWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_grade_writes_total",
			Help: "Grade save and publish operations by outcome.",
		}, []string{"operation", "outcome"})

		suggestionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_grade_suggestions_total",
			Help: "AI grade suggestions by evaluation path and outcome.",
		}, []string{"path", "outcome"})

		projectsGeneratedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_projects_generated_total",
			Help: "Project descriptions generated by outcome.",
		}, []string{"outcome"})

		gradeStreamClients = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hub_grade_stream_clients",
			Help: "Students connected to the live grade stream.",
		})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, gradeWritesTotal, suggestionsTotal, projectsGeneratedTotal, gradeStreamClients)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// GradeWrites counts grading writes labelled by operation (save, publish) and outcome.
func GradeWrites() *prometheus.CounterVec {
	RegisterMetrics()
	return gradeWritesTotal
}

// Suggestions counts evaluator suggestions labelled by path and outcome.
func Suggestions() *prometheus.CounterVec {
	RegisterMetrics()
	return suggestionsTotal
}

// ProjectsGenerated counts project generation attempts by outcome.
func ProjectsGenerated() *prometheus.CounterVec {
	RegisterMetrics()
	return projectsGeneratedTotal
}

// GradeStreamClients tracks open student grade stream connections.
func GradeStreamClients() prometheus.Gauge {
	RegisterMetrics()
	return gradeStreamClients
}
