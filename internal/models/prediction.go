package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Side is the outcome a prediction leans towards
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Prediction represents a probabilistic forecast for a binary market.
// Predictions are append-only and never mutated after insertion.
type Prediction struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	Ticker               string     `db:"ticker" json:"ticker" validate:"required,max=128"`
	Category             string     `db:"category" json:"category" validate:"max=64"`
	ModelID              string     `db:"model_id" json:"model_id" validate:"max=128"`
	PredictedProbability float64    `db:"predicted_probability" json:"predicted_probability" validate:"gte=0,lte=1"`
	MarketProbability    float64    `db:"market_probability" json:"market_probability" validate:"gt=0,lt=1"`
	Confidence           float64    `db:"confidence" json:"confidence" validate:"gte=0,lte=100"`
	Edge                 float64    `db:"edge" json:"edge"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	CloseTime            *time.Time `db:"close_time" json:"close_time,omitempty"`
}

// ComputeEdge returns the signed edge in percentage points
func ComputeEdge(predicted, market float64) float64 {
	return (predicted - market) * 100
}

// PredictedSide returns YES when the forecast gives the event at least even odds
func (p *Prediction) PredictedSide() Side {
	if p.PredictedProbability >= 0.5 {
		return SideYes
	}
	return SideNo
}

// SideProbability returns the probability assigned to the predicted side
func (p *Prediction) SideProbability() float64 {
	if p.PredictedSide() == SideYes {
		return p.PredictedProbability
	}
	return 1 - p.PredictedProbability
}

// SidePrice returns the market price of the predicted side
func (p *Prediction) SidePrice() float64 {
	if p.PredictedSide() == SideYes {
		return p.MarketProbability
	}
	return 1 - p.MarketProbability
}

// PayoutOdds returns the decimal odds paid on the predicted side
func (p *Prediction) PayoutOdds() float64 {
	price := p.SidePrice()
	if price <= 0 {
		return 0
	}
	return 1 / price
}

// SideEdge returns the edge in favour of the predicted side, in percentage points
func (p *Prediction) SideEdge() float64 {
	if p.PredictedSide() == SideYes {
		return p.Edge
	}
	return -p.Edge
}

// IsCorrect reports whether the predicted side matches the actual result
func (p *Prediction) IsCorrect(occurred bool) bool {
	return (p.PredictedSide() == SideYes) == occurred
}

// MeetsThreshold checks if the confidence meets the given threshold
func (p *Prediction) MeetsThreshold(threshold float64) bool {
	return p.Confidence >= threshold
}

// Validate checks the probability domains that struct tags cannot express
func (p *Prediction) Validate() error {
	if p.Ticker == "" {
		return NewValidationError("ticker_required", "ticker is required")
	}
	if math.IsNaN(p.PredictedProbability) || p.PredictedProbability < 0 || p.PredictedProbability > 1 {
		return NewValidationError("invalid_probability", fmt.Sprintf("predicted probability %v outside [0,1]", p.PredictedProbability))
	}
	if math.IsNaN(p.MarketProbability) || p.MarketProbability <= 0 || p.MarketProbability >= 1 {
		return NewValidationError("invalid_market_probability", fmt.Sprintf("market probability %v outside (0,1)", p.MarketProbability))
	}
	if math.IsNaN(p.Confidence) || p.Confidence < 0 || p.Confidence > 100 {
		return NewValidationError("invalid_confidence", fmt.Sprintf("confidence %v outside [0,100]", p.Confidence))
	}
	return nil
}
