package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/edgecheck/internal/analytics"
)

// RunStatus is the lifecycle state of a backtest run
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// IsTerminal reports whether no further transition is allowed
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// Termination reasons recorded on a run
const (
	TerminationExhausted      = "all_predictions_processed"
	TerminationCircuitBreaker = "max_drawdown_exceeded"
	TerminationError          = "error"
)

// EquityPoint is one (timestamp, capital) sample of the equity curve
type EquityPoint struct {
	Time        time.Time `json:"time"`
	Capital     float64   `json:"capital"`
	DrawdownPct float64   `json:"drawdown_pct"`
}

// Trade is a simulated position taken during a backtest replay
type Trade struct {
	PredictionID  uuid.UUID `json:"prediction_id"`
	Ticker        string    `json:"ticker"`
	Side          Side      `json:"side"`
	Probability   float64   `json:"probability"`
	Price         float64   `json:"price"`
	PayoutOdds    float64   `json:"payout_odds"`
	KellyFraction float64   `json:"kelly_fraction,omitempty"`
	Stake         float64   `json:"stake"`
	Won           bool      `json:"won"`
	PnL           float64   `json:"pnl"`
	CapitalAfter  float64   `json:"capital_after"`
	SettledAt     time.Time `json:"settled_at"`
}

// BacktestResult holds the summary statistics of a finished replay
type BacktestResult struct {
	TotalTrades         int             `json:"total_trades"`
	WinningTrades       int             `json:"winning_trades"`
	LosingTrades        int             `json:"losing_trades"`
	SkippedPredictions  int             `json:"skipped_predictions"`
	WinRate             float64         `json:"win_rate"`
	FinalCapital        float64         `json:"final_capital"`
	TotalReturnPct      float64         `json:"total_return_pct"`
	AnnualizedReturnPct float64         `json:"annualized_return_pct"`
	SharpeRatio         float64         `json:"sharpe_ratio"`
	SortinoRatio        analytics.Ratio `json:"sortino_ratio"`
	CalmarRatio         float64         `json:"calmar_ratio"`
	MaxDrawdownPct      float64         `json:"max_drawdown_pct"`
	ProfitFactor        analytics.Ratio `json:"profit_factor"`
	EquityCurve         []EquityPoint   `json:"equity_curve"`
	Trades              []Trade         `json:"trades"`
}

// BacktestRun represents one execution of a strategy over historical predictions
type BacktestRun struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	Name              string          `db:"name" json:"name"`
	Config            StrategyConfig  `db:"config" json:"config"`
	Status            RunStatus       `db:"status" json:"status"`
	Result            *BacktestResult `db:"-" json:"result,omitempty"`
	TerminationReason string          `db:"termination_reason" json:"termination_reason,omitempty"`
	ErrorMessage      string          `db:"error_message" json:"error_message,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	StartedAt         *time.Time      `db:"started_at" json:"started_at,omitempty"`
	CompletedAt       *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}

// NewBacktestRun creates a pending run holding a snapshot of cfg
func NewBacktestRun(name string, cfg StrategyConfig, now time.Time) *BacktestRun {
	if cfg.MaxDrawdownPct != nil {
		limit := *cfg.MaxDrawdownPct
		cfg.MaxDrawdownPct = &limit
	}
	return &BacktestRun{
		ID:        uuid.New(),
		Name:      name,
		Config:    cfg,
		Status:    RunStatusPending,
		CreatedAt: now.UTC(),
	}
}

// Transition moves the run to the next state, rejecting anything outside
// PENDING -> RUNNING -> {COMPLETED, FAILED}.
func (r *BacktestRun) Transition(to RunStatus, at time.Time) error {
	allowed := false
	switch r.Status {
	case RunStatusPending:
		allowed = to == RunStatusRunning
	case RunStatusRunning:
		allowed = to == RunStatusCompleted || to == RunStatusFailed
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}

	at = at.UTC()
	r.Status = to
	if to == RunStatusRunning {
		r.StartedAt = &at
	} else {
		r.CompletedAt = &at
	}
	return nil
}
