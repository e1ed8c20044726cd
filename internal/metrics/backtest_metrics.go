// Package metrics defines backtesting-specific metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Backtest counter vectors
var (
	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backtest_runs_total",
		Help:      "Total number of backtest runs by sizing policy and status",
	}, []string{"position_sizing", "status"})

	BacktestTradesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backtest_trades_total",
		Help:      "Total number of simulated trades by sizing policy",
	}, []string{"position_sizing"})

	CircuitBreakerTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backtest_circuit_breaker_trips_total",
		Help:      "Total number of backtests halted by the max drawdown limit",
	})
)

// Backtest histograms
var (
	BacktestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backtest_duration_seconds",
		Help:      "Duration of backtest runs in seconds",
		Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
	})

	BacktestReturnPct = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backtest_total_return_pct",
		Help:      "Total return percentage of completed backtest runs",
		Buckets:   []float64{-75, -50, -25, -10, 0, 10, 25, 50, 100, 250},
	}, []string{"position_sizing"})
)

// RecordBacktestRun records a finished backtest run.
// status should be one of: "completed", "failed"
func RecordBacktestRun(sizing, status string, durationSeconds float64, trades int) {
	BacktestRunsTotal.WithLabelValues(sizing, status).Inc()
	BacktestDuration.Observe(durationSeconds)
	BacktestTradesTotal.WithLabelValues(sizing).Add(float64(trades))
}

// RecordBacktestReturn records the total return of a completed run.
func RecordBacktestReturn(sizing string, returnPct float64) {
	BacktestReturnPct.WithLabelValues(sizing).Observe(returnPct)
}

// RecordCircuitBreakerTrip records a drawdown halt.
func RecordCircuitBreakerTrip() {
	CircuitBreakerTripsTotal.Inc()
}
