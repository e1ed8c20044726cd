package backtest

import (
	"math"

	"github.com/yourusername/edgecheck/internal/models"
)

// Recommendations produced by GenerateRecommendation
const (
	RecommendAccept = "ACCEPT"
	RecommendReview = "NEEDS_REVIEW"
	RecommendReject = "REJECT"
)

// AggregatedResult combines a replay with its robustness checks
type AggregatedResult struct {
	RunID          string                 `json:"run_id"`
	RunName        string                 `json:"run_name"`
	ParameterHash  string                 `json:"parameter_hash"`
	Replay         *models.BacktestResult `json:"replay"`
	TradeStats     TradeStats             `json:"trade_stats"`
	MonteCarlo     *MonteCarloResult      `json:"monte_carlo,omitempty"`
	WalkForward    *WalkForwardResult     `json:"walk_forward,omitempty"`
	CompositeScore float64                `json:"composite_score"`
	Weights        AggregationWeights     `json:"weights"`
	Recommendation string                 `json:"recommendation"`
}

// AggregationWeights define weighting per method
type AggregationWeights struct {
	HistoricalReplay float64 `json:"historical_replay"`
	MonteCarlo       float64 `json:"monte_carlo"`
	WalkForward      float64 `json:"walk_forward"`
}

// DefaultAggregationWeights favours the actual replay
func DefaultAggregationWeights() AggregationWeights {
	return AggregationWeights{HistoricalReplay: 0.5, MonteCarlo: 0.25, WalkForward: 0.25}
}

// AggregateResults scores a run. Missing monte carlo or walk-forward results
// move their weight onto the replay.
func AggregateResults(run *models.BacktestRun, mc *MonteCarloResult, wf *WalkForwardResult, weights AggregationWeights) AggregatedResult {
	agg := AggregatedResult{
		RunID:          run.ID.String(),
		RunName:        run.Name,
		ParameterHash:  HashParameters(run.Config),
		Replay:         run.Result,
		MonteCarlo:     mc,
		WalkForward:    wf,
		Weights:        weights,
		Recommendation: RecommendReject,
	}
	if run.Result == nil {
		return agg
	}
	agg.TradeStats = CalculateTradeStats(run.Result.Trades)

	replayWeight := weights.HistoricalReplay
	score := 0.0
	if mc != nil {
		score += normalize(mc.MeanReturnPct, -50, 100) * weights.MonteCarlo
	} else {
		replayWeight += weights.MonteCarlo
	}
	consistency := 1.0
	walkForwardReturn := run.Result.TotalReturnPct
	if wf != nil && wf.ScoredWindowCount > 0 {
		score += normalize(wf.MeanReturnPct, -50, 100) * weights.WalkForward
		consistency = wf.ConsistencyScore
		walkForwardReturn = wf.MeanReturnPct
	} else {
		replayWeight += weights.WalkForward
	}
	score += CalculateCompositeScore(run.Result) * replayWeight

	agg.CompositeScore = score
	agg.Recommendation = GenerateRecommendation(score, consistency, run.Result.TotalReturnPct, walkForwardReturn)
	return agg
}

// CalculateCompositeScore scores a replay result in [0, 1]
func CalculateCompositeScore(result *models.BacktestResult) float64 {
	if result == nil || result.TotalTrades == 0 {
		return 0
	}
	profitFactor := 3.0
	if result.ProfitFactor.IsFinite() {
		profitFactor = result.ProfitFactor.Float()
	}

	weighted := 0.0
	weighted += normalize(result.SharpeRatio, -2, 3) * 0.30
	weighted += normalize(result.TotalReturnPct, -50, 100) * 0.20
	weighted += normalize(profitFactor, 0, 3) * 0.20
	weighted += (1.0 - normalize(result.MaxDrawdownPct, 0, 50)) * 0.15
	weighted += normalize(result.WinRate, 0, 1) * 0.15
	return weighted
}

// GenerateRecommendation determines if strategy is acceptable
func GenerateRecommendation(score, consistency, historicalReturn, walkForwardReturn float64) string {
	if score > 0.7 && historicalReturn > 0 && walkForwardReturn > 0 && consistency > 0.6 {
		return RecommendAccept
	}
	if score < 0.4 || historicalReturn < 0 || walkForwardReturn < 0 || consistency < 0.4 {
		return RecommendReject
	}
	return RecommendReview
}

func normalize(value, min, max float64) float64 {
	if max-min == 0 {
		return 0
	}
	v := (value - min) / (max - min)
	return math.Max(0, math.Min(1, v))
}
