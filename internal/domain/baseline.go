package domain

import (
	"math"
)

// BaselineStatistics summarize the disk write rate observed during the
// training window. Only samples below the raw anomaly thresholds
// contribute, so training-time outliers cannot contaminate the baseline.
type BaselineStatistics struct {
	MeanWriteRate float64 `json:"mean_write_rate"`
	StdWriteRate  float64 `json:"std_write_rate"`
	SampleCount   int     `json:"sample_count"`
}

// ComputeBaseline derives mean/std statistics from the filtered normal
// write-rate samples. Returns an InvalidTrainingDataError when the
// resulting statistics are non-finite.
func ComputeBaseline(writeRates []float64) (BaselineStatistics, error) {
	if len(writeRates) == 0 {
		return BaselineStatistics{}, nil
	}

	var sum float64
	for _, r := range writeRates {
		sum += r
	}
	mean := sum / float64(len(writeRates))

	var variance float64
	for _, r := range writeRates {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(writeRates))
	std := math.Sqrt(variance)

	if math.IsNaN(mean) || math.IsInf(mean, 0) || math.IsNaN(std) || math.IsInf(std, 0) {
		return BaselineStatistics{}, &InvalidTrainingDataError{Reason: "non-finite baseline statistics"}
	}

	return BaselineStatistics{
		MeanWriteRate: mean,
		StdWriteRate:  std,
		SampleCount:   len(writeRates),
	}, nil
}

// ZScore returns how many standard deviations value sits from the
// baseline mean. Zero variance yields z = 0 rather than dividing by
// zero.
func (bs BaselineStatistics) ZScore(value float64) float64 {
	if bs.StdWriteRate == 0 {
		return 0
	}
	return (value - bs.MeanWriteRate) / bs.StdWriteRate
}
