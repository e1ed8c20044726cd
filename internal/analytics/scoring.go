package analytics

import (
	"fmt"
	"math"
)

// DefaultEpsilon is the probability clamp used by LogLoss
const DefaultEpsilon = 1e-15

// BrierScore returns the mean squared difference between predicted
// probabilities and binary outcomes. Outcomes are coerced to {0,1}.
func BrierScore(predicted, outcomes []float64) (float64, error) {
	if err := validateProbabilities(predicted, outcomes); err != nil {
		return 0, err
	}
	sum := 0.0
	for i, p := range predicted {
		diff := p - binary(outcomes[i])
		sum += diff * diff
	}
	return sum / float64(len(predicted)), nil
}

// LogLoss returns the binary cross-entropy. Probabilities are clamped to
// [epsilon, 1-epsilon]; a non-positive epsilon selects DefaultEpsilon.
func LogLoss(predicted, outcomes []float64, epsilon float64) (float64, error) {
	if err := validateProbabilities(predicted, outcomes); err != nil {
		return 0, err
	}
	if epsilon <= 0 || epsilon >= 0.5 {
		epsilon = DefaultEpsilon
	}
	sum := 0.0
	for i, p := range predicted {
		p = math.Min(math.Max(p, epsilon), 1-epsilon)
		y := binary(outcomes[i])
		sum += y*math.Log(p) + (1-y)*math.Log(1-p)
	}
	return -sum / float64(len(predicted)), nil
}

// BrierComponent is the single-observation Brier score
func BrierComponent(p float64, occurred bool) float64 {
	diff := p - boolToFloat(occurred)
	return diff * diff
}

// LogLossComponent is the single-observation log loss with DefaultEpsilon clamping
func LogLossComponent(p float64, occurred bool) float64 {
	p = math.Min(math.Max(p, DefaultEpsilon), 1-DefaultEpsilon)
	if occurred {
		return -math.Log(p)
	}
	return -math.Log(1 - p)
}

// OutcomesFromBools converts settled results into the {0,1} encoding
func OutcomesFromBools(results []bool) []float64 {
	out := make([]float64, len(results))
	for i, r := range results {
		out[i] = boolToFloat(r)
	}
	return out
}

func validateProbabilities(predicted, outcomes []float64) error {
	if len(predicted) != len(outcomes) {
		return fmt.Errorf("%w: %d predictions but %d outcomes", ErrInvalidInput, len(predicted), len(outcomes))
	}
	if len(predicted) == 0 {
		return fmt.Errorf("%w: no observations", ErrInvalidInput)
	}
	for i, p := range predicted {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("%w: probability %v at index %d outside [0,1]", ErrInvalidInput, p, i)
		}
	}
	return nil
}

func binary(v float64) float64 {
	if v >= 0.5 {
		return 1
	}
	return 0
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
