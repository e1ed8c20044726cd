// Package analytics provides the stateless scoring and risk functions shared
// by the performance tracker and the backtest engine.
package analytics

import "errors"

var (
	// ErrInvalidInput indicates mismatched lengths, empty input or out-of-range probabilities
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientData indicates too few observations for the statistic
	ErrInsufficientData = errors.New("insufficient data")
)
