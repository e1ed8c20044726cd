package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yourusername/edgecheck/internal/analytics"
)

// PerformanceRecord is derived once per settled prediction and never mutated
type PerformanceRecord struct {
	PredictionID  uuid.UUID       `db:"prediction_id" json:"prediction_id"`
	ActualOutcome bool            `db:"actual_outcome" json:"actual_outcome"`
	IsCorrect     bool            `db:"is_correct" json:"is_correct"`
	Stake         decimal.Decimal `db:"stake" json:"stake"`
	PnL           decimal.Decimal `db:"pnl" json:"pnl"`
	ROIPercent    decimal.Decimal `db:"roi_percent" json:"roi_percent"`
	BrierScore    float64         `db:"brier_score" json:"brier_score"`
	LogLoss       float64         `db:"log_loss" json:"log_loss"`
	SettledAt     time.Time       `db:"settled_at" json:"settled_at"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// IsWin reports whether the record made money
func (r *PerformanceRecord) IsWin() bool {
	return r.PnL.IsPositive()
}

// SettledPrediction joins a prediction with its outcome and derived record
type SettledPrediction struct {
	Prediction Prediction         `json:"prediction"`
	Outcome    Outcome            `json:"outcome"`
	Record     *PerformanceRecord `json:"record,omitempty"`
}

// PerformanceFilter narrows the settled records included in a summary.
// Zero values disable the corresponding filter.
type PerformanceFilter struct {
	From          *time.Time `json:"from,omitempty"`
	To            *time.Time `json:"to,omitempty"`
	Category      string     `json:"category,omitempty"`
	ModelID       string     `json:"model_id,omitempty"`
	MinConfidence float64    `json:"min_confidence,omitempty"`
}

// Matches applies the filter to a settled prediction
func (f PerformanceFilter) Matches(sp *SettledPrediction) bool {
	if sp == nil {
		return false
	}
	if f.From != nil && sp.Outcome.SettledAt.Before(*f.From) {
		return false
	}
	if f.To != nil && sp.Outcome.SettledAt.After(*f.To) {
		return false
	}
	if f.Category != "" && sp.Prediction.Category != f.Category {
		return false
	}
	if f.ModelID != "" && sp.Prediction.ModelID != f.ModelID {
		return false
	}
	if f.MinConfidence > 0 && sp.Prediction.Confidence < f.MinConfidence {
		return false
	}
	return true
}

// PerformanceSummary aggregates settled performance records on demand
type PerformanceSummary struct {
	TotalSettled      int                   `json:"total_settled"`
	CorrectCount      int                   `json:"correct_count"`
	AccuracyPct       float64               `json:"accuracy_pct"`
	TotalStaked       decimal.Decimal       `json:"total_staked"`
	TotalPnL          decimal.Decimal       `json:"total_pnl"`
	ROIPercent        decimal.Decimal       `json:"roi_percent"`
	AverageBrierScore float64               `json:"average_brier_score"`
	AverageLogLoss    float64               `json:"average_log_loss"`
	WinRate           float64               `json:"win_rate"`
	ProfitFactor      analytics.Ratio       `json:"profit_factor"`
	SharpeRatio       analytics.Ratio       `json:"sharpe_ratio"`
	Calibration       analytics.Calibration `json:"calibration"`
	Filter            PerformanceFilter     `json:"filter"`
	GeneratedAt       time.Time             `json:"generated_at"`
}
