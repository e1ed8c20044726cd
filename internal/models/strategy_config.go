package models

import (
	"fmt"
	"math"
)

// PositionSizing selects how a backtest sizes each position
type PositionSizing string

const (
	SizingKelly        PositionSizing = "kelly"
	SizingFixed        PositionSizing = "fixed"
	SizingProportional PositionSizing = "proportional"
)

// StrategyConfig is the immutable input of a backtest run. Only the
// parameters of the selected PositionSizing are used; the others are
// ignored but still validated.
type StrategyConfig struct {
	InitialCapital     float64        `json:"initial_capital" mapstructure:"initial_capital" validate:"gt=0"`
	PositionSizing     PositionSizing `json:"position_sizing" mapstructure:"position_sizing" validate:"required,oneof=kelly fixed proportional"`
	KellyFraction      float64        `json:"kelly_fraction,omitempty" mapstructure:"kelly_fraction" validate:"gte=0,lte=1"`
	FixedBetSize       float64        `json:"fixed_bet_size,omitempty" mapstructure:"fixed_bet_size" validate:"gte=0"`
	MaxPositionSizePct float64        `json:"max_position_size_pct" mapstructure:"max_position_size_pct" validate:"gt=0,lte=100"`
	MinConfidence      float64        `json:"min_confidence" mapstructure:"min_confidence" validate:"gte=0,lte=100"`
	MinEdge            float64        `json:"min_edge" mapstructure:"min_edge"`
	MaxDrawdownPct     *float64       `json:"max_drawdown_pct,omitempty" mapstructure:"max_drawdown_pct" validate:"omitempty,gt=0,lte=100"`
	RiskFreeRate       float64        `json:"risk_free_rate" mapstructure:"risk_free_rate" validate:"gte=0,lte=1"`
	PeriodsPerYear     int            `json:"periods_per_year" mapstructure:"periods_per_year" validate:"gte=0,lte=100000"`
}

// HasCircuitBreaker reports whether a max drawdown limit is configured
func (c StrategyConfig) HasCircuitBreaker() bool {
	return c.MaxDrawdownPct != nil && *c.MaxDrawdownPct > 0
}

// Parameters returns the sizing-relevant parameters for logging and hashing
func (c StrategyConfig) Parameters() map[string]interface{} {
	params := map[string]interface{}{
		"initial_capital":       c.InitialCapital,
		"position_sizing":       string(c.PositionSizing),
		"max_position_size_pct": c.MaxPositionSizePct,
		"min_confidence":        c.MinConfidence,
		"min_edge":              c.MinEdge,
	}
	switch c.PositionSizing {
	case SizingKelly:
		params["kelly_fraction"] = c.KellyFraction
	case SizingFixed:
		params["fixed_bet_size"] = c.FixedBetSize
	}
	if c.HasCircuitBreaker() {
		params["max_drawdown_pct"] = *c.MaxDrawdownPct
	}
	return params
}

// ValidateStrategy checks the cross-field rules a tag-based validator cannot
// express. Errors wrap ErrInvalidConfig.
func ValidateStrategy(c StrategyConfig) error {
	values := map[string]float64{
		"initial_capital":       c.InitialCapital,
		"kelly_fraction":        c.KellyFraction,
		"fixed_bet_size":        c.FixedBetSize,
		"max_position_size_pct": c.MaxPositionSizePct,
		"min_confidence":        c.MinConfidence,
		"min_edge":              c.MinEdge,
		"risk_free_rate":        c.RiskFreeRate,
	}
	for name, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidConfig, name)
		}
	}

	if c.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial_capital must be positive", ErrInvalidConfig)
	}
	if c.KellyFraction < 0 || c.KellyFraction > 1 {
		return fmt.Errorf("%w: kelly_fraction must be within [0, 1], got %v", ErrInvalidConfig, c.KellyFraction)
	}
	if c.FixedBetSize < 0 {
		return fmt.Errorf("%w: fixed_bet_size cannot be negative", ErrInvalidConfig)
	}
	if c.MaxPositionSizePct <= 0 || c.MaxPositionSizePct > 100 {
		return fmt.Errorf("%w: max_position_size_pct must be within (0, 100]", ErrInvalidConfig)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		return fmt.Errorf("%w: min_confidence must be within [0, 100]", ErrInvalidConfig)
	}
	if c.MaxDrawdownPct != nil && (*c.MaxDrawdownPct <= 0 || *c.MaxDrawdownPct > 100) {
		return fmt.Errorf("%w: max_drawdown_pct must be within (0, 100]", ErrInvalidConfig)
	}
	if c.PeriodsPerYear < 0 {
		return fmt.Errorf("%w: periods_per_year cannot be negative", ErrInvalidConfig)
	}

	switch c.PositionSizing {
	case SizingKelly:
		if c.KellyFraction <= 0 {
			return fmt.Errorf("%w: kelly sizing requires kelly_fraction in (0, 1]", ErrInvalidConfig)
		}
	case SizingFixed:
		if c.FixedBetSize <= 0 {
			return fmt.Errorf("%w: fixed sizing requires a positive fixed_bet_size", ErrInvalidConfig)
		}
	case SizingProportional:
	default:
		return fmt.Errorf("%w: unknown position_sizing %q", ErrInvalidConfig, c.PositionSizing)
	}
	return nil
}
