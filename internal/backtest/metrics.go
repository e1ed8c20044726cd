package backtest

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/yourusername/edgecheck/internal/analytics"
	"github.com/yourusername/edgecheck/internal/models"
)

// TradeStats holds per-trade statistics that are reported alongside the result
type TradeStats struct {
	AverageWin    float64 `json:"average_win"`
	AverageLoss   float64 `json:"average_loss"`
	LargestWin    float64 `json:"largest_win"`
	LargestLoss   float64 `json:"largest_loss"`
	Expectancy    float64 `json:"expectancy"`
	ValueAtRisk95 float64 `json:"var_95"`
	TotalStaked   float64 `json:"total_staked"`
}

// CalculateResult derives the summary statistics of a replay
func CalculateResult(state *BacktestState, cfg models.StrategyConfig) *models.BacktestResult {
	result := &models.BacktestResult{
		SortinoRatio: analytics.Undefined(),
		ProfitFactor: analytics.Finite(0),
		EquityCurve:  []models.EquityPoint{},
		Trades:       []models.Trade{},
	}
	if state == nil {
		return result
	}

	result.TotalTrades = len(state.Trades)
	result.SkippedPredictions = state.Skipped
	result.FinalCapital = state.Capital
	result.EquityCurve = append(result.EquityCurve, state.EquityCurve...)
	result.Trades = append(result.Trades, state.Trades...)

	for _, trade := range state.Trades {
		if trade.Won {
			result.WinningTrades++
		} else {
			result.LosingTrades++
		}
	}
	if result.TotalTrades > 0 {
		result.WinRate = float64(result.WinningTrades) / float64(result.TotalTrades)
	}

	if state.InitialCapital > 0 {
		result.TotalReturnPct = (state.Capital - state.InitialCapital) / state.InitialCapital * 100
		days := state.EquityCurve.Span().Hours() / 24
		result.AnnualizedReturnPct = analytics.AnnualizedReturn(state.InitialCapital, state.Capital, days)
	}

	returns := state.EquityCurve.GetReturns()
	// insufficient data leaves the sentinel values in place
	if sharpe, err := analytics.SharpeRatio(returns, cfg.RiskFreeRate, cfg.PeriodsPerYear); err == nil {
		result.SharpeRatio = sharpe
	}
	if sortino, err := analytics.SortinoRatio(returns, cfg.RiskFreeRate, cfg.PeriodsPerYear); err == nil {
		result.SortinoRatio = sortino
	}

	result.MaxDrawdownPct = analytics.MaxDrawdown(state.EquityCurve.Values())
	result.CalmarRatio = analytics.CalmarRatio(result.AnnualizedReturnPct, result.MaxDrawdownPct)
	result.ProfitFactor = analytics.ProfitFactor(state.PnLs())

	return result
}

// CalculateTradeStats computes win/loss statistics over a trade list
func CalculateTradeStats(trades []models.Trade) TradeStats {
	stats := TradeStats{}
	if len(trades) == 0 {
		return stats
	}

	wins, losses := 0, 0
	winSum, lossSum := 0.0, 0.0
	pnls := make([]float64, 0, len(trades))
	for _, trade := range trades {
		stats.TotalStaked += trade.Stake
		pnls = append(pnls, trade.PnL)
		if trade.Won {
			wins++
			winSum += trade.PnL
			stats.LargestWin = math.Max(stats.LargestWin, trade.PnL)
			continue
		}
		losses++
		lossSum += trade.PnL
		stats.LargestLoss = math.Min(stats.LargestLoss, trade.PnL)
	}

	if wins > 0 {
		stats.AverageWin = winSum / float64(wins)
	}
	if losses > 0 {
		stats.AverageLoss = lossSum / float64(losses)
	}
	stats.Expectancy = analytics.Mean(pnls)
	stats.ValueAtRisk95 = valueAtRisk(pnls, 0.95)
	return stats
}

// valueAtRisk returns the loss at the given confidence level, historical method
func valueAtRisk(values []float64, confidence float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	index := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return -sorted[index]
}

// HashParameters returns a stable hash of a strategy configuration
func HashParameters(cfg models.StrategyConfig) string {
	data, err := json.Marshal(cfg.Parameters())
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum[:8])
}
