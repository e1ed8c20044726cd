package models

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the realized result of the market behind a prediction
type Outcome struct {
	PredictionID uuid.UUID `db:"prediction_id" json:"prediction_id"`
	ActualResult bool      `db:"actual_result" json:"actual_result"`
	SettledAt    time.Time `db:"settled_at" json:"settled_at"`
}

// ResultLabel returns "yes" or "no" for persistence and display
func (o *Outcome) ResultLabel() string {
	return ResultLabel(o.ActualResult)
}

// ResultLabel maps a binary result onto its stored label
func ResultLabel(occurred bool) string {
	if occurred {
		return "yes"
	}
	return "no"
}

// ParseResultLabel accepts yes/no labels as well as true/false
func ParseResultLabel(label string) (bool, error) {
	switch label {
	case "yes", "YES", "true", "1":
		return true, nil
	case "no", "NO", "false", "0":
		return false, nil
	default:
		return false, NewValidationError("invalid_result", "result must be yes or no, got '"+label+"'")
	}
}
