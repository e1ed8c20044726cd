package backtest

import (
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/edgecheck/internal/models"
)

var baseTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func settled(prob, market float64, occurred bool, day int) *models.SettledPrediction {
	id := uuid.New()
	return &models.SettledPrediction{
		Prediction: models.Prediction{
			ID:                   id,
			Ticker:               "KX-TEST",
			Category:             "politics",
			ModelID:              "model-a",
			PredictedProbability: prob,
			MarketProbability:    market,
			Confidence:           80,
			Edge:                 models.ComputeEdge(prob, market),
			CreatedAt:            baseTime.Add(time.Duration(day) * time.Hour),
		},
		Outcome: models.Outcome{
			PredictionID: id,
			ActualResult: occurred,
			SettledAt:    baseTime.AddDate(0, 0, day+1),
		},
	}
}

func kellyConfig() models.StrategyConfig {
	return models.StrategyConfig{
		InitialCapital:     10000,
		PositionSizing:     models.SizingKelly,
		KellyFraction:      0.25,
		MaxPositionSizePct: 10,
		MinConfidence:      60,
		MinEdge:            2,
	}
}

func proportionalConfig(maxDrawdown float64) models.StrategyConfig {
	cfg := models.StrategyConfig{
		InitialCapital:     10000,
		PositionSizing:     models.SizingProportional,
		MaxPositionSizePct: 10,
	}
	if maxDrawdown > 0 {
		cfg.MaxDrawdownPct = &maxDrawdown
	}
	return cfg
}
