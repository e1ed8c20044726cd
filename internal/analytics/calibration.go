package analytics

import (
	"fmt"
	"math"
)

// DefaultCalibrationBins is the bucket count used when none is configured
const DefaultCalibrationBins = 10

// CalibrationBin describes one equal-width probability bucket
type CalibrationBin struct {
	Lower             float64 `json:"lower"`
	Upper             float64 `json:"upper"`
	Count             int     `json:"count"`
	MeanPredicted     float64 `json:"mean_predicted"`
	ObservedFrequency float64 `json:"observed_frequency"`
	Gap               float64 `json:"gap"`
}

// Calibration holds the non-empty buckets and the expected calibration error
type Calibration struct {
	Bins []CalibrationBin `json:"bins"`
	ECE  float64          `json:"ece"`
}

// CalibrationMetrics partitions predictions into nBins equal-width buckets over
// [0,1]. Empty buckets are left out of both Bins and the ECE sum.
func CalibrationMetrics(predicted, outcomes []float64, nBins int) (Calibration, error) {
	if nBins <= 0 {
		return Calibration{}, fmt.Errorf("%w: bin count must be positive, got %d", ErrInvalidInput, nBins)
	}
	if err := validateProbabilities(predicted, outcomes); err != nil {
		return Calibration{}, err
	}

	counts := make([]int, nBins)
	sumPred := make([]float64, nBins)
	sumObs := make([]float64, nBins)
	for i, p := range predicted {
		idx := int(math.Floor(p * float64(nBins)))
		if idx >= nBins {
			idx = nBins - 1
		}
		counts[idx]++
		sumPred[idx] += p
		sumObs[idx] += binary(outcomes[i])
	}

	width := 1.0 / float64(nBins)
	result := Calibration{Bins: make([]CalibrationBin, 0, nBins)}
	total := float64(len(predicted))
	for i := 0; i < nBins; i++ {
		if counts[i] == 0 {
			continue
		}
		n := float64(counts[i])
		bin := CalibrationBin{
			Lower:             float64(i) * width,
			Upper:             float64(i+1) * width,
			Count:             counts[i],
			MeanPredicted:     sumPred[i] / n,
			ObservedFrequency: sumObs[i] / n,
		}
		bin.Gap = math.Abs(bin.MeanPredicted - bin.ObservedFrequency)
		result.ECE += n / total * bin.Gap
		result.Bins = append(result.Bins, bin)
	}
	return result, nil
}
