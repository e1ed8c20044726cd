package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/edgecheck/internal/datasource"
	"github.com/yourusername/edgecheck/internal/models"
)

// DataValidator checks feed records before they are normalized
type DataValidator struct {
	maxClockSkew time.Duration
	now          func() time.Time
}

// NewDataValidator creates a validator that rejects timestamps further in the
// future than maxClockSkew.
func NewDataValidator(maxClockSkew time.Duration) *DataValidator {
	if maxClockSkew <= 0 {
		maxClockSkew = 5 * time.Minute
	}
	return &DataValidator{
		maxClockSkew: maxClockSkew,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ValidatePrediction returns every problem found in a feed prediction
func (v *DataValidator) ValidatePrediction(p *datasource.PredictionData) []string {
	var errors []string

	if strings.TrimSpace(p.Ticker) == "" {
		errors = append(errors, "ticker is required")
	}
	if p.SourceID != "" {
		if _, err := uuid.Parse(p.SourceID); err != nil {
			errors = append(errors, fmt.Sprintf("id %q is not a uuid", p.SourceID))
		}
	}
	if !inRange(p.PredictedProbability, 0, 1) {
		errors = append(errors, fmt.Sprintf("predicted_probability must be within [0,1], got %v", p.PredictedProbability))
	}
	if !inRange(p.Confidence, 0, 100) {
		errors = append(errors, fmt.Sprintf("confidence must be within [0,100], got %v", p.Confidence))
	}

	switch {
	case p.MarketProbability != nil:
		if m := *p.MarketProbability; math.IsNaN(m) || m <= 0 || m >= 1 {
			errors = append(errors, fmt.Sprintf("market_probability must be within (0,1), got %v", m))
		}
	case p.YesOdds != nil && p.NoOdds != nil:
		if *p.YesOdds <= 1 || *p.NoOdds <= 1 {
			errors = append(errors, "decimal odds must exceed 1")
		}
	default:
		errors = append(errors, "market_probability or yes_odds/no_odds is required")
	}

	if p.CreatedAt.After(v.now().Add(v.maxClockSkew)) {
		errors = append(errors, fmt.Sprintf("created_at %s is in the future", p.CreatedAt.Format(time.RFC3339)))
	}
	return errors
}

// ValidateSettlement returns every problem found in a feed settlement
func (v *DataValidator) ValidateSettlement(s *datasource.SettlementData) []string {
	var errors []string

	if _, err := uuid.Parse(s.PredictionID); err != nil {
		errors = append(errors, fmt.Sprintf("prediction_id %q is not a uuid", s.PredictionID))
	}
	if _, err := models.ParseResultLabel(s.Result); err != nil {
		errors = append(errors, err.Error())
	}
	if s.SettledAt.IsZero() {
		errors = append(errors, "settled_at is required")
	} else if s.SettledAt.After(v.now().Add(v.maxClockSkew)) {
		errors = append(errors, fmt.Sprintf("settled_at %s is in the future", s.SettledAt.Format(time.RFC3339)))
	}
	return errors
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}
