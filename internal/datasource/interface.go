package datasource

import (
	"context"
	"errors"
	"time"
)

// FeedSource supplies predictions and settlements from an external system
type FeedSource interface {
	// FetchPredictions returns predictions created at or after since
	FetchPredictions(ctx context.Context, since time.Time) ([]PredictionData, error)

	// FetchSettlements returns market settlements at or after since
	FetchSettlements(ctx context.Context, since time.Time) ([]SettlementData, error)

	// Name returns the name of the feed
	Name() string

	// IsEnabled returns whether this feed is currently enabled
	IsEnabled() bool
}

// PredictionData is a forecast as published by the feed. The market price
// is given either as an implied probability or as a pair of decimal odds.
type PredictionData struct {
	SourceID             string     `json:"id"`
	Ticker               string     `json:"ticker"`
	Category             string     `json:"category"`
	ModelID              string     `json:"model_id"`
	PredictedProbability float64    `json:"predicted_probability"`
	MarketProbability    *float64   `json:"market_probability,omitempty"`
	YesOdds              *float64   `json:"yes_odds,omitempty"`
	NoOdds               *float64   `json:"no_odds,omitempty"`
	Confidence           float64    `json:"confidence"`
	CreatedAt            time.Time  `json:"created_at"`
	CloseTime            *time.Time `json:"close_time,omitempty"`
}

// SettlementData is a market result as published by the feed
type SettlementData struct {
	PredictionID string    `json:"prediction_id"`
	Result       string    `json:"result"`
	SettledAt    time.Time `json:"settled_at"`
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

// Unwrap returns the underlying error
func (e DataSourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
	ErrCodeDisabled             = "disabled"
)

// ErrFeedDisabled is returned by a feed that is switched off
var ErrFeedDisabled = errors.New("feed is disabled")

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
