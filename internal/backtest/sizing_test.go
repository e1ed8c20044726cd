package backtest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/edgecheck/internal/config"
	"github.com/yourusername/edgecheck/internal/models"
)

func TestKellyFraction(t *testing.T) {
	assert.InDelta(t, 0.2, KellyFraction(0.6, 1.0), 1e-12)
	assert.InDelta(t, 0.0, KellyFraction(0.5, 1.0), 1e-12)
	assert.Less(t, KellyFraction(0.4, 1.0), 0.0)
	assert.Equal(t, 0.0, KellyFraction(0.9, 0))
}

func TestPositionSizeKellyQuarter(t *testing.T) {
	p := settled(0.6, 0.5, true, 0).Prediction

	stake, kelly := PositionSize(kellyConfig(), &p, 10000)

	assert.InDelta(t, 0.2, kelly, 1e-9)
	assert.InDelta(t, 10000*0.05, stake, 1e-9)
}

func TestPositionSizeKellyClampedToMaxPosition(t *testing.T) {
	p := settled(0.9, 0.5, true, 0).Prediction

	stake, kelly := PositionSize(kellyConfig(), &p, 10000)

	assert.InDelta(t, 0.8, kelly, 1e-9)
	assert.Equal(t, 1000.0, stake)
}

func TestPositionSizeKellyWithoutEdge(t *testing.T) {
	p := settled(0.55, 0.6, true, 0).Prediction

	stake, kelly := PositionSize(kellyConfig(), &p, 10000)

	assert.Equal(t, 0.0, stake)
	assert.LessOrEqual(t, kelly, 0.0)
}

func TestPositionSizeFixed(t *testing.T) {
	cfg := models.StrategyConfig{
		InitialCapital:     1000,
		PositionSizing:     models.SizingFixed,
		FixedBetSize:       250,
		MaxPositionSizePct: 20,
	}
	p := settled(0.7, 0.5, true, 0).Prediction

	stake, _ := PositionSize(cfg, &p, 1000)
	assert.Equal(t, 200.0, stake, "clamped to max position")

	cfg.MaxPositionSizePct = 100
	stake, _ = PositionSize(cfg, &p, 120)
	assert.Equal(t, 120.0, stake, "clamped to capital")
}

func TestPositionSizeProportional(t *testing.T) {
	p := settled(0.7, 0.5, true, 0).Prediction

	stake, _ := PositionSize(proportionalConfig(0), &p, 12345.67)

	assert.Equal(t, 1234.57, stake)
}

func TestPositionSizeRoundsToNothing(t *testing.T) {
	p := settled(0.7, 0.5, true, 0).Prediction

	stake, _ := PositionSize(proportionalConfig(0), &p, 0.04)
	assert.Equal(t, 0.0, stake)

	stake, _ = PositionSize(proportionalConfig(0), &p, 0)
	assert.Equal(t, 0.0, stake)
}

func TestSettlementPnL(t *testing.T) {
	assert.InDelta(t, 1222.22, SettlementPnL(1000, 1/0.45, true), 1e-9)
	assert.Equal(t, -1000.0, SettlementPnL(1000, 1/0.45, false))
}

func TestValidateStrategyConfig(t *testing.T) {
	require.NoError(t, ValidateStrategyConfig(kellyConfig()))

	tests := []struct {
		name   string
		modify func(*models.StrategyConfig)
	}{
		{"negative capital", func(c *models.StrategyConfig) { c.InitialCapital = -1 }},
		{"kelly fraction above one", func(c *models.StrategyConfig) { c.KellyFraction = 1.5 }},
		{"kelly fraction zero", func(c *models.StrategyConfig) { c.KellyFraction = 0 }},
		{"unknown sizing", func(c *models.StrategyConfig) { c.PositionSizing = "martingale" }},
		{"max position zero", func(c *models.StrategyConfig) { c.MaxPositionSizePct = 0 }},
		{"fixed without size", func(c *models.StrategyConfig) { c.PositionSizing = models.SizingFixed }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := kellyConfig()
			tt.modify(&cfg)
			err := ValidateStrategyConfig(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrInvalidConfig))
		})
	}
}

func TestDrawdownBreaker(t *testing.T) {
	limit := 10.0
	b := NewDrawdownBreaker(&limit)

	assert.False(t, b.Check(9.99))
	assert.True(t, b.Check(10))
	assert.True(t, b.Check(0), "stays open once tripped")
	assert.Contains(t, b.Reason(), "10.00%")

	disabled := NewDrawdownBreaker(nil)
	assert.False(t, disabled.Check(99))
	assert.Equal(t, 0.0, disabled.Limit())
}

func TestFromConfig(t *testing.T) {
	strategy, opts, err := FromConfig(&config.BacktestConfig{
		Strategy:             kellyConfig(),
		MonteCarloIterations: 200,
		WalkForwardWindows:   3,
		OutputPath:           "./reports",
	})
	require.NoError(t, err)

	assert.Equal(t, models.SizingKelly, strategy.PositionSizing)
	assert.Equal(t, 1, opts.MaxConcurrentRuns)
	assert.Equal(t, 200, opts.MonteCarloIterations)
	assert.Equal(t, 3, opts.WalkForwardWindows)

	_, _, err = FromConfig(nil)
	assert.Error(t, err)
}
