package backtest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/edgecheck/internal/config"
	"github.com/yourusername/edgecheck/internal/models"
)

var strategyValidator = validator.New()

// Options carries engine settings that are not part of a strategy
type Options struct {
	MaxConcurrentRuns    int
	MonteCarloIterations int
	WalkForwardWindows   int
	OutputPath           string
}

// FromConfig converts app config to the default strategy and engine options
func FromConfig(cfg *config.BacktestConfig) (models.StrategyConfig, Options, error) {
	if cfg == nil {
		return models.StrategyConfig{}, Options{}, fmt.Errorf("backtest config is required")
	}

	opts := Options{
		MaxConcurrentRuns:    cfg.MaxConcurrentRuns,
		MonteCarloIterations: cfg.MonteCarloIterations,
		WalkForwardWindows:   cfg.WalkForwardWindows,
		OutputPath:           cfg.OutputPath,
	}
	if opts.MaxConcurrentRuns <= 0 {
		opts.MaxConcurrentRuns = 1
	}

	return cfg.Strategy, opts, ValidateStrategyConfig(cfg.Strategy)
}

// ValidateStrategyConfig rejects malformed or contradictory strategy
// parameters. Errors wrap models.ErrInvalidConfig.
func ValidateStrategyConfig(cfg models.StrategyConfig) error {
	if err := strategyValidator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make([]string, 0, len(validationErrors))
			for _, fe := range validationErrors {
				fields = append(fields, fmt.Sprintf("%s failed '%s'", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", models.ErrInvalidConfig, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", models.ErrInvalidConfig, err)
	}
	return models.ValidateStrategy(cfg)
}
