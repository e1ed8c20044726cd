package backtest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/yourusername/edgecheck/internal/analytics"
	"github.com/yourusername/edgecheck/internal/models"
)

// DefaultMonteCarloIterations is used when no iteration count is configured
const DefaultMonteCarloIterations = 1000

// MonteCarloConfig configures monte carlo simulation
type MonteCarloConfig struct {
	Iterations     int
	Seed           int64
	InitialCapital float64
}

// MonteCarloResult summarizes the distribution of simulated final capital.
// Returns are percentages of the initial capital.
type MonteCarloResult struct {
	Iterations          int                `json:"iterations"`
	MeanReturnPct       float64            `json:"mean_return_pct"`
	StdReturnPct        float64            `json:"std_return_pct"`
	VaR95Pct            float64            `json:"var_95_pct"`
	VaR99Pct            float64            `json:"var_99_pct"`
	ProbabilityOfProfit float64            `json:"probability_of_profit"`
	ProbabilityOfRuin   float64            `json:"probability_of_ruin"`
	ConfidenceIntervals map[string]float64 `json:"confidence_intervals"`
	Distribution        []float64          `json:"distribution,omitempty"`
}

// RunMonteCarlo re-draws the result of every trade from the probability the
// model assigned to its side. Each trade keeps the fraction of capital it
// staked in the original replay, so sizing compounds the same way.
func RunMonteCarlo(ctx context.Context, trades []models.Trade, cfg MonteCarloConfig) (MonteCarloResult, error) {
	if cfg.InitialCapital <= 0 {
		return MonteCarloResult{}, fmt.Errorf("%w: initial capital must be positive", analytics.ErrInvalidInput)
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = DefaultMonteCarloIterations
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	fractions := stakeFractions(trades)
	rng := rand.New(rand.NewSource(seed))
	distribution := make([]float64, cfg.Iterations)

	for i := 0; i < cfg.Iterations; i++ {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return MonteCarloResult{}, err
			}
		}
		capital := cfg.InitialCapital
		for j, trade := range trades {
			stake := roundCents(capital * fractions[j])
			if stake <= 0 {
				continue
			}
			won := rng.Float64() < trade.Probability
			capital = roundCents(capital + SettlementPnL(stake, trade.PayoutOdds, won))
			if capital <= 0 {
				capital = 0
				break
			}
		}
		distribution[i] = capital
	}

	returns := make([]float64, len(distribution))
	for i, final := range distribution {
		returns[i] = (final - cfg.InitialCapital) / cfg.InitialCapital * 100
	}

	return MonteCarloResult{
		Iterations:          cfg.Iterations,
		MeanReturnPct:       analytics.Mean(returns),
		StdReturnPct:        analytics.StdDev(returns),
		VaR95Pct:            percentile(returns, 0.05),
		VaR99Pct:            percentile(returns, 0.01),
		ProbabilityOfProfit: probabilityAbove(distribution, cfg.InitialCapital),
		ProbabilityOfRuin:   probabilityAtOrBelow(distribution, 0),
		ConfidenceIntervals: CalculateConfidenceIntervals(returns, []float64{0.9, 0.95, 0.99}),
		Distribution:        distribution,
	}, nil
}

// stakeFractions returns each trade's stake relative to the capital it was
// placed from.
func stakeFractions(trades []models.Trade) []float64 {
	fractions := make([]float64, len(trades))
	for i, trade := range trades {
		before := trade.CapitalAfter - trade.PnL
		if before > 0 {
			fractions[i] = trade.Stake / before
		}
	}
	return fractions
}

// CalculateConfidenceIntervals returns the width of the central interval
// for every confidence level
func CalculateConfidenceIntervals(distribution []float64, levels []float64) map[string]float64 {
	results := make(map[string]float64)
	for _, level := range levels {
		p := (1.0 - level) / 2.0
		low := percentile(distribution, p)
		high := percentile(distribution, 1.0-p)
		results[formatPercent(level)] = high - low
	}
	return results
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)
	idx := int(math.Floor(p * float64(len(sorted)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func probabilityAbove(values []float64, threshold float64) float64 {
	if len(values) == 0 {
		return 0
	}
	count := 0
	for _, v := range values {
		if v > threshold {
			count++
		}
	}
	return float64(count) / float64(len(values))
}

func probabilityAtOrBelow(values []float64, threshold float64) float64 {
	if len(values) == 0 {
		return 0
	}
	count := 0
	for _, v := range values {
		if v <= threshold {
			count++
		}
	}
	return float64(count) / float64(len(values))
}

func formatPercent(level float64) string {
	return fmt.Sprintf("%.0f%%", level*100)
}
