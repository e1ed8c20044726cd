// Package metrics defines performance-tracking metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Tracker counters
var (
	PredictionsRecordedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "predictions_recorded_total",
		Help:      "Total number of predictions recorded by category",
	}, []string{"category"})

	OutcomesRecordedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outcomes_recorded_total",
		Help:      "Total number of outcome submissions by result",
	}, []string{"result"})

	FeatureWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feature_writes_total",
		Help:      "Total number of feature snapshot writes by feature set",
	}, []string{"feature_set"})

	FeatureCacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feature_cache_lookups_total",
		Help:      "Feature store cache lookups by result",
	}, []string{"result"})

	IngestionRecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingestion_records_total",
		Help:      "Feed records processed by kind and status",
	}, []string{"kind", "status"})
)

// Tracker gauges
var (
	SettledPnLTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "settled_pnl_total",
		Help:      "Running total of tracked pnl across settled predictions",
	})

	SummaryAccuracy = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "summary_accuracy_pct",
		Help:      "Accuracy percentage of the most recent unfiltered performance summary",
	})

	SummaryBrierScore = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "summary_brier_score",
		Help:      "Average Brier score of the most recent unfiltered performance summary",
	})
)

// Outcome results
const (
	OutcomeSettled   = "settled"
	OutcomeDuplicate = "duplicate"
	OutcomeConflict  = "conflict"
	OutcomeNotFound  = "not_found"
)

// RecordPrediction records a newly stored prediction.
func RecordPrediction(category string) {
	if category == "" {
		category = "uncategorized"
	}
	PredictionsRecordedTotal.WithLabelValues(category).Inc()
}

// RecordOutcome records an outcome submission and, for new settlements, its pnl.
func RecordOutcome(result string, pnl float64) {
	OutcomesRecordedTotal.WithLabelValues(result).Inc()
	if result == OutcomeSettled {
		SettledPnLTotal.Add(pnl)
	}
}

// RecordFeatureWrite records a feature snapshot upsert.
func RecordFeatureWrite(featureSet string) {
	FeatureWritesTotal.WithLabelValues(featureSet).Inc()
}

// RecordFeatureCacheLookup records a cache hit or miss.
func RecordFeatureCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	FeatureCacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordIngestedRecord records one feed record. kind is "prediction" or
// "settlement"; status is "applied", "duplicate" or "rejected".
func RecordIngestedRecord(kind, status string) {
	IngestionRecordsTotal.WithLabelValues(kind, status).Inc()
}

// UpdateSummary publishes headline figures of an unfiltered summary.
func UpdateSummary(accuracyPct, brierScore float64) {
	SummaryAccuracy.Set(accuracyPct)
	SummaryBrierScore.Set(brierScore)
}
