package backtest

import (
	"time"

	"github.com/yourusername/edgecheck/internal/models"
)

// BacktestState tracks the mutable state of a single replay. It is owned by
// one goroutine for the duration of the run.
type BacktestState struct {
	InitialCapital    float64
	Capital           float64
	PeakCapital       float64
	EquityCurve       EquityCurve
	Trades            []models.Trade
	Skipped           int
	Halted            bool
	TerminationReason string
}

// NewBacktestState initializes state with the opening equity point at t0
func NewBacktestState(initialCapital float64, t0 time.Time) *BacktestState {
	state := &BacktestState{
		InitialCapital: initialCapital,
		Capital:        initialCapital,
		PeakCapital:    initialCapital,
		Trades:         []models.Trade{},
	}
	state.RecordEquityPoint(t0, initialCapital)
	return state
}

// ApplyTrade books a settled trade and appends the resulting equity point
func (s *BacktestState) ApplyTrade(trade models.Trade) {
	s.Capital = roundCents(s.Capital + trade.PnL)
	if s.Capital > s.PeakCapital {
		s.PeakCapital = s.Capital
	}
	trade.CapitalAfter = s.Capital
	s.Trades = append(s.Trades, trade)
	s.RecordEquityPoint(trade.SettledAt, s.Capital)
}

// DrawdownPct returns the current peak-to-trough drawdown as a percentage
func (s *BacktestState) DrawdownPct() float64 {
	if s.PeakCapital <= 0 {
		return 0
	}
	drawdown := (s.PeakCapital - s.Capital) / s.PeakCapital * 100
	if drawdown < 0 {
		return 0
	}
	return drawdown
}

// RecordEquityPoint adds an equity point to the curve
func (s *BacktestState) RecordEquityPoint(t time.Time, capital float64) {
	drawdown := 0.0
	if capital < s.PeakCapital && s.PeakCapital > 0 {
		drawdown = (s.PeakCapital - capital) / s.PeakCapital * 100
	}
	s.EquityCurve = append(s.EquityCurve, models.EquityPoint{
		Time:        t.UTC(),
		Capital:     capital,
		DrawdownPct: drawdown,
	})
}

// PnLs returns the pnl of every trade in order
func (s *BacktestState) PnLs() []float64 {
	pnls := make([]float64, len(s.Trades))
	for i, t := range s.Trades {
		pnls[i] = t.PnL
	}
	return pnls
}
