package analytics

import "math"

// Mean returns the arithmetic mean, 0 for empty input
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// Negatives returns the negative values in their original order
func Negatives(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v < 0 {
			out = append(out, v)
		}
	}
	return out
}

// DownsideDeviation returns the population standard deviation of the
// negative values only. It is 0 when fewer than two values are negative
// or all negative values are equal.
func DownsideDeviation(values []float64) float64 {
	return StdDev(Negatives(values))
}

// Returns converts a value series into simple period returns.
// A zero previous value yields a zero return.
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (values[i]-prev)/prev)
	}
	return returns
}

// AnnualizedReturn returns the compound annual growth rate as a percentage
func AnnualizedReturn(initial, final float64, days float64) float64 {
	if initial <= 0 || days <= 0 {
		return 0
	}
	if final <= 0 {
		return -100
	}
	years := days / 365.0
	cagr := (math.Pow(final/initial, 1.0/years) - 1.0) * 100
	if math.IsInf(cagr, 0) || math.IsNaN(cagr) {
		// very short spans overflow the compounding; fall back to the simple return
		return (final - initial) / initial * 100
	}
	return cagr
}
