// Package metrics provides the centralized Prometheus metrics registry for edgecheck.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "edgecheck"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// HTTP metrics
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of API requests by route, method and status code",
	}, []string{"route", "method", "code"})
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of API requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
)

// Scheduler metrics
var (
	ScheduledJobRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scheduled_job_runs_total",
		Help:      "Total number of scheduled job executions by job and status",
	}, []string{"job", "status"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		registry.MustRegister(HTTPRequestsTotal)
		registry.MustRegister(HTTPRequestDuration)
		registry.MustRegister(ScheduledJobRunsTotal)

		// Tracker metrics
		registry.MustRegister(PredictionsRecordedTotal)
		registry.MustRegister(OutcomesRecordedTotal)
		registry.MustRegister(SettledPnLTotal)
		registry.MustRegister(SummaryAccuracy)
		registry.MustRegister(SummaryBrierScore)
		registry.MustRegister(FeatureWritesTotal)
		registry.MustRegister(FeatureCacheLookupsTotal)
		registry.MustRegister(IngestionRecordsTotal)

		// Backtest metrics
		registry.MustRegister(BacktestRunsTotal)
		registry.MustRegister(BacktestDuration)
		registry.MustRegister(BacktestTradesTotal)
		registry.MustRegister(BacktestReturnPct)
		registry.MustRegister(CircuitBreakerTripsTotal)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served API request.
func RecordHTTPRequest(route, method, code string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(route, method, code).Inc()
	HTTPRequestDuration.WithLabelValues(route, method).Observe(durationSeconds)
}

// RecordScheduledJob records a scheduled job execution.
// status should be one of: "success", "failure"
func RecordScheduledJob(job, status string) {
	ScheduledJobRunsTotal.WithLabelValues(job, status).Inc()
}
