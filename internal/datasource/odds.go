package datasource

import (
	"fmt"

	"github.com/yourusername/edgecheck/internal/analytics"
)

// ImpliedProbability converts decimal odds into the implied probability
func ImpliedProbability(decimalOdds float64) (float64, error) {
	if decimalOdds <= 1 {
		return 0, fmt.Errorf("%w: decimal odds must exceed 1, got %v", analytics.ErrInvalidInput, decimalOdds)
	}
	return 1 / decimalOdds, nil
}

// DecimalOdds converts a market price in (0, 1) into decimal odds
func DecimalOdds(price float64) (float64, error) {
	if price <= 0 || price >= 1 {
		return 0, fmt.Errorf("%w: price must be within (0, 1), got %v", analytics.ErrInvalidInput, price)
	}
	return 1 / price, nil
}

// NormalizeOverround rescales a two-sided book so the implied probabilities
// sum to one and returns the YES probability.
func NormalizeOverround(yesOdds, noOdds float64) (float64, error) {
	yes, err := ImpliedProbability(yesOdds)
	if err != nil {
		return 0, err
	}
	no, err := ImpliedProbability(noOdds)
	if err != nil {
		return 0, err
	}
	return yes / (yes + no), nil
}
