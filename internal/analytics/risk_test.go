package analytics

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharpeRatio(t *testing.T) {
	sharpe, err := SharpeRatio([]float64{0.01, 0.03}, 0, 365)
	require.NoError(t, err)
	// mean 0.02, population stdev 0.01
	assert.InDelta(t, 2*math.Sqrt(365), sharpe, 1e-9)
}

func TestSharpeRatioScaleInvariant(t *testing.T) {
	returns := []float64{0.01, 0.02, -0.01, 0.03}
	doubled := make([]float64, len(returns))
	for i, r := range returns {
		doubled[i] = r * 2
	}

	base, err := SharpeRatio(returns, 0, 252)
	require.NoError(t, err)
	scaled, err := SharpeRatio(doubled, 0, 252)
	require.NoError(t, err)
	assert.InDelta(t, base, scaled, 1e-9)
}

func TestSharpeRatioRiskFreeRate(t *testing.T) {
	sharpe, err := SharpeRatio([]float64{0.01, 0.03}, 3.65, 365)
	require.NoError(t, err)
	// rf per period 0.01 leaves an excess of 0.01 over stdev 0.01
	assert.InDelta(t, math.Sqrt(365), sharpe, 1e-9)
}

func TestSharpeRatioDegenerate(t *testing.T) {
	sharpe, err := SharpeRatio([]float64{0.01, 0.01, 0.01}, 0, 365)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sharpe)

	_, err = SharpeRatio([]float64{0.01}, 0, 365)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestSortinoRatio(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.03, -0.02}
	sortino, err := SortinoRatio(returns, 0, 365)
	require.NoError(t, err)
	require.True(t, sortino.IsFinite())

	// mean 0.005 over the stddev of {-0.01, -0.02}, which is 0.005
	assert.InDelta(t, math.Sqrt(365), sortino.Value, 1e-9)

	sortino, err = SortinoRatio([]float64{0.1, -0.02, -0.04}, 0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.04/3/0.01, sortino.Value, 1e-9)
}

func TestSortinoRatioFlatDownside(t *testing.T) {
	sortino, err := SortinoRatio([]float64{0.05, -0.01}, 0, 365)
	require.NoError(t, err)
	assert.Equal(t, RatioUndefined, sortino.Kind)

	sortino, err = SortinoRatio([]float64{0.05, -0.01, 0.02, -0.01}, 0, 365)
	require.NoError(t, err)
	assert.Equal(t, RatioUndefined, sortino.Kind)
}

func TestDownsideDeviation(t *testing.T) {
	assert.InDelta(t, 0.01, DownsideDeviation([]float64{0.1, -0.02, 0.3, -0.04}), 1e-12)
	assert.Equal(t, 0.0, DownsideDeviation([]float64{0.1, -0.02}))
	assert.Equal(t, 0.0, DownsideDeviation([]float64{0.1, 0.2}))
	assert.Equal(t, []float64{-0.02, -0.04}, Negatives([]float64{0.1, -0.02, 0, -0.04}))
}

func TestSortinoRatioWithoutLosingPeriods(t *testing.T) {
	sortino, err := SortinoRatio([]float64{0.01, 0.02}, 0, 365)
	require.NoError(t, err)
	assert.Equal(t, RatioInfinite, sortino.Kind)
	assert.True(t, math.IsInf(sortino.Float(), 1))

	sortino, err = SortinoRatio([]float64{0, 0}, 0, 365)
	require.NoError(t, err)
	assert.Equal(t, RatioUndefined, sortino.Kind)
	assert.Nil(t, sortino.Nullable())

	_, err = SortinoRatio([]float64{0.01}, 0, 365)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCalmarRatio(t *testing.T) {
	assert.InDelta(t, 2.0, CalmarRatio(20, -10), 1e-12)
	assert.InDelta(t, 2.0, CalmarRatio(20, 10), 1e-12)
	assert.Equal(t, 0.0, CalmarRatio(20, 0))
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name     string
		equity   []float64
		expected float64
	}{
		{name: "strictly increasing", equity: []float64{100, 110, 120, 130}, expected: 0},
		{name: "doubles then halves", equity: []float64{100, 200, 100}, expected: 50},
		{name: "recovers after dip", equity: []float64{100, 80, 120, 90, 150}, expected: 25},
		{name: "empty", equity: nil, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, MaxDrawdown(tt.equity), 1e-9)
		})
	}
}

func TestProfitFactor(t *testing.T) {
	assert.Equal(t, Finite(2), ProfitFactor([]float64{10, -5}))
	assert.Equal(t, Infinite(), ProfitFactor([]float64{10, 5}))
	assert.Equal(t, Finite(0), ProfitFactor([]float64{-5, -1}))
	assert.Equal(t, Finite(0), ProfitFactor(nil))
}

func TestAnnualizedReturn(t *testing.T) {
	assert.InDelta(t, 10.0, AnnualizedReturn(100, 110, 365), 1e-9)
	assert.Equal(t, 0.0, AnnualizedReturn(0, 110, 365))
	assert.Equal(t, -100.0, AnnualizedReturn(100, 0, 365))
}

func TestReturns(t *testing.T) {
	assert.Equal(t, []float64{}, Returns([]float64{100}))
	returns := Returns([]float64{100, 110, 99})
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.1, returns[0], 1e-12)
	assert.InDelta(t, -0.1, returns[1], 1e-12)
}

func TestRatioJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		A Ratio `json:"a"`
		B Ratio `json:"b"`
		C Ratio `json:"c"`
	}{A: Finite(1.5), B: Infinite(), C: Undefined()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.5,"b":"inf","c":null}`, string(data))

	var decoded struct {
		B Ratio `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"b":"inf"}`), &decoded))
	assert.Equal(t, RatioInfinite, decoded.B.Kind)
}
