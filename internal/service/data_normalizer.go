package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yourusername/edgecheck/internal/datasource"
	"github.com/yourusername/edgecheck/internal/models"
)

// DataNormalizer converts feed records into domain models
type DataNormalizer struct {
	categoryMap map[string]string
}

// NewDataNormalizer creates a new data normalizer
func NewDataNormalizer() *DataNormalizer {
	return &DataNormalizer{categoryMap: buildCategoryMap()}
}

// NormalizePrediction converts a validated feed prediction. Odds pairs are
// de-margined into a YES probability.
func (n *DataNormalizer) NormalizePrediction(p *datasource.PredictionData) (*models.Prediction, error) {
	if p == nil {
		return nil, fmt.Errorf("source prediction is nil")
	}

	id := uuid.Nil
	if p.SourceID != "" {
		parsed, err := uuid.Parse(p.SourceID)
		if err != nil {
			return nil, fmt.Errorf("invalid prediction id: %w", err)
		}
		id = parsed
	}

	var market float64
	switch {
	case p.MarketProbability != nil:
		market = *p.MarketProbability
	case p.YesOdds != nil && p.NoOdds != nil:
		yes, err := datasource.NormalizeOverround(*p.YesOdds, *p.NoOdds)
		if err != nil {
			return nil, err
		}
		market = yes
	default:
		return nil, fmt.Errorf("prediction %s has no market price", p.SourceID)
	}

	prediction := &models.Prediction{
		ID:                   id,
		Ticker:               strings.ToUpper(strings.TrimSpace(p.Ticker)),
		Category:             n.normalizeCategory(p.Category),
		ModelID:              strings.TrimSpace(p.ModelID),
		PredictedProbability: p.PredictedProbability,
		MarketProbability:    market,
		Confidence:           p.Confidence,
		Edge:                 models.ComputeEdge(p.PredictedProbability, market),
		CreatedAt:            p.CreatedAt.UTC(),
	}
	if p.CloseTime != nil {
		closeTime := p.CloseTime.UTC()
		prediction.CloseTime = &closeTime
	}
	return prediction, nil
}

// NormalizeSettlement converts a validated feed settlement
func (n *DataNormalizer) NormalizeSettlement(s *datasource.SettlementData) (*models.Outcome, error) {
	id, err := uuid.Parse(s.PredictionID)
	if err != nil {
		return nil, fmt.Errorf("invalid prediction id: %w", err)
	}
	result, err := models.ParseResultLabel(strings.TrimSpace(s.Result))
	if err != nil {
		return nil, err
	}
	return &models.Outcome{PredictionID: id, ActualResult: result, SettledAt: s.SettledAt.UTC()}, nil
}

// normalizeCategory maps provider category names onto canonical ones
func (n *DataNormalizer) normalizeCategory(category string) string {
	key := strings.ToLower(strings.TrimSpace(category))
	if key == "" {
		return ""
	}
	if canonical, ok := n.categoryMap[key]; ok {
		return canonical
	}
	return key
}

func buildCategoryMap() map[string]string {
	return map[string]string{
		"politics":      "politics",
		"elections":     "politics",
		"economics":     "economics",
		"economy":       "economics",
		"fed":           "economics",
		"financials":    "financials",
		"markets":       "financials",
		"climate":       "climate",
		"weather":       "climate",
		"sports":        "sports",
		"tech":          "technology",
		"technology":    "technology",
		"science":       "science",
		"culture":       "culture",
		"entertainment": "culture",
	}
}
