package analytics

import (
	"fmt"
	"math"
)

// DefaultPeriodsPerYear annualizes daily return series
const DefaultPeriodsPerYear = 365

// SharpeRatio returns (mean - rf/ppy) / stdev * sqrt(ppy). A zero standard
// deviation yields 0; fewer than two returns is ErrInsufficientData.
func SharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) (float64, error) {
	if len(returns) < 2 {
		return 0, fmt.Errorf("%w: sharpe ratio needs at least 2 returns, got %d", ErrInsufficientData, len(returns))
	}
	ppy := periods(periodsPerYear)
	std := StdDev(returns)
	if std == 0 {
		return 0, nil
	}
	return (Mean(returns) - riskFreeRate/ppy) / std * math.Sqrt(ppy), nil
}

// SortinoRatio uses the downside deviation as denominator. Without losing
// periods the ratio is Infinite for a positive excess return and Undefined
// otherwise. Losing periods with zero dispersion (a single loss, or equal
// losses) also yield Undefined.
func SortinoRatio(returns []float64, riskFreeRate float64, periodsPerYear int) (Ratio, error) {
	if len(returns) < 2 {
		return Undefined(), fmt.Errorf("%w: sortino ratio needs at least 2 returns, got %d", ErrInsufficientData, len(returns))
	}
	ppy := periods(periodsPerYear)
	excess := Mean(returns) - riskFreeRate/ppy
	losses := Negatives(returns)
	if len(losses) == 0 {
		if excess > 0 {
			return Infinite(), nil
		}
		return Undefined(), nil
	}
	downside := StdDev(losses)
	if downside == 0 {
		return Undefined(), nil
	}
	return Finite(excess / downside * math.Sqrt(ppy)), nil
}

// CalmarRatio divides the annualized return by the absolute max drawdown.
// Both are expected in the same unit; a zero drawdown yields 0.
func CalmarRatio(annualizedReturn, maxDrawdownPct float64) float64 {
	if maxDrawdownPct == 0 {
		return 0
	}
	return annualizedReturn / math.Abs(maxDrawdownPct)
}

// MaxDrawdown returns the largest peak-to-trough decline of an equity
// series as a percentage, in a single pass.
func MaxDrawdown(equity []float64) float64 {
	maxDD := 0.0
	peak := 0.0
	for i, v := range equity {
		if i == 0 || v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		drawdown := (peak - v) / peak
		if drawdown > maxDD {
			maxDD = drawdown
		}
	}
	return maxDD * 100
}

// ProfitFactor divides gross profit by gross loss. No losses with at least
// one win is Infinite; no wins is 0.
func ProfitFactor(pnls []float64) Ratio {
	grossProfit := 0.0
	grossLoss := 0.0
	for _, pnl := range pnls {
		if pnl > 0 {
			grossProfit += pnl
		} else if pnl < 0 {
			grossLoss += -pnl
		}
	}
	if grossProfit == 0 {
		return Finite(0)
	}
	if grossLoss == 0 {
		return Infinite()
	}
	return Finite(grossProfit / grossLoss)
}

func periods(periodsPerYear int) float64 {
	if periodsPerYear <= 0 {
		return DefaultPeriodsPerYear
	}
	return float64(periodsPerYear)
}
