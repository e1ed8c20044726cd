package backtest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/edgecheck/internal/models"
)

func TestRunWalkForward(t *testing.T) {
	records := []*models.SettledPrediction{}
	for day := 0; day < 8; day++ {
		// first half wins, second half alternates
		occurred := day < 4 || day%2 == 0
		records = append(records, settled(0.7, 0.5, occurred, day))
	}

	result, err := RunWalkForward(proportionalConfig(0), records, WalkForwardConfig{Windows: 4})
	require.NoError(t, err)

	require.Len(t, result.Windows, 4)
	for i, w := range result.Windows {
		assert.Equal(t, i+1, w.WindowID)
		assert.Equal(t, 2, w.Predictions)
		assert.False(t, w.End.Before(w.Start))
	}
	assert.Equal(t, 4, result.ScoredWindowCount)
	assert.Equal(t, 0.5, result.ConsistencyScore)
	assert.Greater(t, result.MeanReturnPct, 0.0)
}

func TestRunWalkForwardMinTrades(t *testing.T) {
	records := []*models.SettledPrediction{
		settled(0.7, 0.5, true, 0),
		settled(0.7, 0.5, true, 1),
		settled(0.7, 0.5, true, 2),
	}

	result, err := RunWalkForward(proportionalConfig(0), records, WalkForwardConfig{Windows: 2, MinTradesPerWindow: 2})
	require.NoError(t, err)

	require.Len(t, result.Windows, 2)
	assert.Equal(t, 2, result.Windows[0].Predictions)
	assert.Equal(t, 1, result.ScoredWindowCount)
	assert.Equal(t, 1.0, result.ConsistencyScore)
}

func TestRunWalkForwardMoreWindowsThanRecords(t *testing.T) {
	result, err := RunWalkForward(proportionalConfig(0), []*models.SettledPrediction{settled(0.7, 0.5, true, 0)}, WalkForwardConfig{Windows: 5})
	require.NoError(t, err)
	assert.Len(t, result.Windows, 1)
}

func TestRunWalkForwardInvalidConfig(t *testing.T) {
	cfg := proportionalConfig(0)
	cfg.InitialCapital = -5

	_, err := RunWalkForward(cfg, nil, WalkForwardConfig{})
	assert.True(t, errors.Is(err, models.ErrInvalidConfig))
}

func TestCalculateConsistency(t *testing.T) {
	assert.Equal(t, 0.0, CalculateConsistency(0, 0))
	assert.Equal(t, 0.75, CalculateConsistency(3, 4))
}
