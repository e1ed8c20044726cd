// Package logger provides backtest-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"

	"github.com/yourusername/edgecheck/internal/models"
)

// BacktestLogger provides dedicated logging for backtest runs.
type BacktestLogger struct {
	*logrus.Entry
}

// NewBacktestLogger creates a new backtest logger.
func NewBacktestLogger(baseLogger *logrus.Logger) *BacktestLogger {
	return &BacktestLogger{
		Entry: baseLogger.WithField("component", "backtest"),
	}
}

func (bl *BacktestLogger) run(run *models.BacktestRun) *logrus.Entry {
	return bl.WithFields(logrus.Fields{
		"run_id":   run.ID.String(),
		"run_name": run.Name,
	})
}

// LogRunStarted logs a run leaving PENDING.
func (bl *BacktestLogger) LogRunStarted(run *models.BacktestRun, predictions int) {
	bl.run(run).WithFields(logrus.Fields{
		"position_sizing": string(run.Config.PositionSizing),
		"initial_capital": run.Config.InitialCapital,
		"predictions":     predictions,
	}).Info("Backtest run started")
}

// LogRunCompleted logs the summary of a completed run.
func (bl *BacktestLogger) LogRunCompleted(run *models.BacktestRun) {
	entry := bl.run(run).WithField("termination_reason", run.TerminationReason)
	if run.Result != nil {
		entry = entry.WithFields(logrus.Fields{
			"total_trades":     run.Result.TotalTrades,
			"final_capital":    run.Result.FinalCapital,
			"total_return_pct": run.Result.TotalReturnPct,
			"max_drawdown_pct": run.Result.MaxDrawdownPct,
			"sharpe_ratio":     run.Result.SharpeRatio,
		})
	}
	entry.Info("Backtest run completed")
}

// LogRunFailed logs a run that ended in FAILED.
func (bl *BacktestLogger) LogRunFailed(run *models.BacktestRun, err error) {
	bl.run(run).WithError(err).Error("Backtest run failed")
}

// LogCircuitBreaker logs an early stop caused by the drawdown limit.
func (bl *BacktestLogger) LogCircuitBreaker(run *models.BacktestRun, drawdownPct, limitPct float64, remaining int) {
	bl.run(run).WithFields(logrus.Fields{
		"drawdown_pct":          drawdownPct,
		"max_drawdown_pct":      limitPct,
		"remaining_predictions": remaining,
	}).Warn("Max drawdown reached, halting backtest")
}

// LogTrade logs a simulated trade at debug level.
func (bl *BacktestLogger) LogTrade(run *models.BacktestRun, trade models.Trade) {
	bl.run(run).WithFields(logrus.Fields{
		"prediction_id": trade.PredictionID.String(),
		"side":          string(trade.Side),
		"stake":         trade.Stake,
		"payout_odds":   trade.PayoutOdds,
		"won":           trade.Won,
		"pnl":           trade.PnL,
		"capital":       trade.CapitalAfter,
	}).Debug("Trade settled")
}

// LogSkip logs a prediction that was not traded.
func (bl *BacktestLogger) LogSkip(run *models.BacktestRun, predictionID, reason string) {
	bl.run(run).WithFields(logrus.Fields{
		"prediction_id": predictionID,
		"reason":        reason,
	}).Debug("Prediction skipped")
}
