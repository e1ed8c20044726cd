package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrierScore(t *testing.T) {
	tests := []struct {
		name      string
		predicted []float64
		outcomes  []float64
		expected  float64
	}{
		{name: "binary and correct", predicted: []float64{1, 0, 1}, outcomes: []float64{1, 0, 1}, expected: 0},
		{name: "binary and wrong", predicted: []float64{1, 0}, outcomes: []float64{0, 1}, expected: 1},
		{name: "coin flips", predicted: []float64{0.5, 0.5}, outcomes: []float64{1, 0}, expected: 0.25},
		{name: "outcomes coerced", predicted: []float64{0.8}, outcomes: []float64{0.9}, expected: 0.04},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := BrierScore(tt.predicted, tt.outcomes)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, score, 1e-12)
		})
	}
}

func TestBrierScoreBounded(t *testing.T) {
	predicted := []float64{0, 0.1, 0.33, 0.5, 0.72, 0.9, 1}
	outcomes := []float64{1, 0, 1, 1, 0, 0, 0}
	score, err := BrierScore(predicted, outcomes)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestBrierScoreInvalidInput(t *testing.T) {
	_, err := BrierScore([]float64{0.5, 0.5}, []float64{1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = BrierScore([]float64{1.2}, []float64{1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = BrierScore([]float64{-0.1}, []float64{0})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = BrierScore(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLogLoss(t *testing.T) {
	loss, err := LogLoss([]float64{0.5, 0.5}, []float64{1, 0}, 0)
	require.NoError(t, err)
	assert.InDelta(t, math.Ln2, loss, 1e-12)

	// confidently wrong predictions are clamped instead of producing +Inf
	loss, err = LogLoss([]float64{1, 0}, []float64{0, 1}, DefaultEpsilon)
	require.NoError(t, err)
	assert.False(t, math.IsInf(loss, 0))
	assert.InDelta(t, -math.Log(DefaultEpsilon), loss, 1e-6)

	_, err = LogLoss([]float64{0.5}, []float64{1, 0}, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSingleObservationComponents(t *testing.T) {
	assert.InDelta(t, 0.09, BrierComponent(0.7, true), 1e-12)
	assert.InDelta(t, 0.49, BrierComponent(0.7, false), 1e-12)
	assert.InDelta(t, -math.Log(0.7), LogLossComponent(0.7, true), 1e-12)
	assert.InDelta(t, -math.Log(0.3), LogLossComponent(0.7, false), 1e-12)
}

func TestOutcomesFromBools(t *testing.T) {
	assert.Equal(t, []float64{1, 0, 1}, OutcomesFromBools([]bool{true, false, true}))
}
