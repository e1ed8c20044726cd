package backtest

import (
	"fmt"
	"time"

	"github.com/yourusername/edgecheck/internal/analytics"
	"github.com/yourusername/edgecheck/internal/models"
)

// DefaultWalkForwardWindows is used when no window count is configured
const DefaultWalkForwardWindows = 4

// WalkForwardConfig configures the chronological split
type WalkForwardConfig struct {
	Windows            int
	MinTradesPerWindow int
}

// WalkForwardWindow is one out-of-sample slice replayed with fresh capital
type WalkForwardWindow struct {
	WindowID    int                    `json:"window_id"`
	Start       time.Time              `json:"start"`
	End         time.Time              `json:"end"`
	Predictions int                    `json:"predictions"`
	Result      *models.BacktestResult `json:"result"`
	Halted      bool                   `json:"halted"`
}

// WalkForwardResult aggregates the windows that met the trade threshold
type WalkForwardResult struct {
	Windows           []WalkForwardWindow `json:"windows"`
	MeanReturnPct     float64             `json:"mean_return_pct"`
	MeanSharpeRatio   float64             `json:"mean_sharpe_ratio"`
	WorstDrawdownPct  float64             `json:"worst_drawdown_pct"`
	ConsistencyScore  float64             `json:"consistency_score"`
	ReturnDispersion  float64             `json:"return_dispersion"`
	ScoredWindowCount int                 `json:"scored_window_count"`
}

// RunWalkForward splits records into consecutive windows of settlement
// time and replays each one independently with the same strategy.
func RunWalkForward(cfg models.StrategyConfig, records []*models.SettledPrediction, wf WalkForwardConfig) (WalkForwardResult, error) {
	if err := ValidateStrategyConfig(cfg); err != nil {
		return WalkForwardResult{}, err
	}
	if wf.Windows <= 0 {
		wf.Windows = DefaultWalkForwardWindows
	}
	for i, record := range records {
		if record == nil {
			return WalkForwardResult{}, fmt.Errorf("%w: record %d is nil", models.ErrInvalidRecord, i)
		}
	}

	ordered := append([]*models.SettledPrediction(nil), records...)
	sortForReplay(ordered)

	result := WalkForwardResult{Windows: []WalkForwardWindow{}}
	for i, chunk := range splitWindows(ordered, wf.Windows) {
		state, err := Replay(cfg, chunk)
		if err != nil {
			return result, fmt.Errorf("walk-forward window %d: %w", i+1, err)
		}
		result.Windows = append(result.Windows, WalkForwardWindow{
			WindowID:    i + 1,
			Start:       chunk[0].Outcome.SettledAt.UTC(),
			End:         chunk[len(chunk)-1].Outcome.SettledAt.UTC(),
			Predictions: len(chunk),
			Result:      CalculateResult(state, cfg),
			Halted:      state.Halted,
		})
	}

	scoreWalkForward(&result, wf.MinTradesPerWindow)
	return result, nil
}

// splitWindows cuts records into n contiguous chunks of near-equal size
func splitWindows(records []*models.SettledPrediction, n int) [][]*models.SettledPrediction {
	if len(records) == 0 {
		return nil
	}
	if n > len(records) {
		n = len(records)
	}
	chunks := make([][]*models.SettledPrediction, 0, n)
	size := len(records) / n
	extra := len(records) % n
	start := 0
	for i := 0; i < n; i++ {
		end := start + size
		if i < extra {
			end++
		}
		chunks = append(chunks, records[start:end])
		start = end
	}
	return chunks
}

func scoreWalkForward(result *WalkForwardResult, minTrades int) {
	returns := []float64{}
	sharpes := []float64{}
	profitable := 0
	for _, w := range result.Windows {
		if w.Result.TotalTrades < minTrades || w.Result.TotalTrades == 0 {
			continue
		}
		returns = append(returns, w.Result.TotalReturnPct)
		sharpes = append(sharpes, w.Result.SharpeRatio)
		if w.Result.TotalReturnPct > 0 {
			profitable++
		}
		if w.Result.MaxDrawdownPct > result.WorstDrawdownPct {
			result.WorstDrawdownPct = w.Result.MaxDrawdownPct
		}
	}

	result.ScoredWindowCount = len(returns)
	if len(returns) == 0 {
		return
	}
	result.MeanReturnPct = analytics.Mean(returns)
	result.MeanSharpeRatio = analytics.Mean(sharpes)
	result.ReturnDispersion = analytics.StdDev(returns)
	result.ConsistencyScore = CalculateConsistency(profitable, len(returns))
}

// CalculateConsistency returns the share of profitable windows
func CalculateConsistency(profitable, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(profitable) / float64(total)
}
