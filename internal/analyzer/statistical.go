package analyzer

import (
	"math"

	"ransomwatch/internal/domain"
)

// StatisticalAnalyzer is a simple z-score backend: a vector is
// anomalous when any feature sits more than Threshold standard
// deviations from its training mean. Useful as a lightweight
// alternative to the isolation forest and as a cross-check in tests.
type StatisticalAnalyzer struct {
	Threshold  float64   `json:"threshold"`
	MinSamples int       `json:"min_samples"`
	Means      []float64 `json:"means"`
	Stds       []float64 `json:"stds"`
	Trained    bool      `json:"trained"`
}

// NewStatisticalAnalyzer creates an untrained z-score backend.
// threshold <= 0 falls back to 2 standard deviations.
func NewStatisticalAnalyzer(threshold float64, minSamples int) *StatisticalAnalyzer {
	if threshold <= 0 {
		threshold = 2.0
	}
	if minSamples <= 0 {
		minSamples = DefaultMinTrainingSamples
	}
	return &StatisticalAnalyzer{Threshold: threshold, MinSamples: minSamples}
}

// IsTrained reports whether Train completed successfully
func (s *StatisticalAnalyzer) IsTrained() bool {
	return s.Trained
}

// Dimension returns the trained feature dimension, 0 when untrained
func (s *StatisticalAnalyzer) Dimension() int {
	return len(s.Means)
}

// Train computes per-feature mean and standard deviation
func (s *StatisticalAnalyzer) Train(features []domain.FeatureVector) error {
	if err := checkTrainingMatrix(features, s.MinSamples); err != nil {
		return err
	}

	dim := len(features[0])
	s.Means = make([]float64, dim)
	s.Stds = make([]float64, dim)

	n := float64(len(features))
	for j := 0; j < dim; j++ {
		var sum float64
		for _, v := range features {
			sum += v[j]
		}
		s.Means[j] = sum / n
	}
	for j := 0; j < dim; j++ {
		var variance float64
		for _, v := range features {
			d := v[j] - s.Means[j]
			variance += d * d
		}
		s.Stds[j] = math.Sqrt(variance / n)
	}

	s.Trained = true
	return nil
}

// Analyze flags the vector when its worst per-feature |z| exceeds the
// threshold. Features with zero training variance contribute z = 0.
func (s *StatisticalAnalyzer) Analyze(vector domain.FeatureVector) (*domain.AnalysisResult, error) {
	if !s.Trained {
		return nil, domain.ErrNotTrained
	}
	if len(vector) != len(s.Means) {
		return nil, &domain.DimensionMismatchError{Want: len(s.Means), Got: len(vector)}
	}

	maxZ := 0.0
	worstFeature := -1
	for j, x := range vector {
		if s.Stds[j] == 0 {
			continue
		}
		z := math.Abs((x - s.Means[j]) / s.Stds[j])
		if z > maxZ {
			maxZ = z
			worstFeature = j
		}
	}

	return &domain.AnalysisResult{
		IsAnomaly: maxZ > s.Threshold,
		RawScore:  maxZ,
		Details: map[string]interface{}{
			"backend":       "statistical",
			"max_z_score":   maxZ,
			"worst_feature": worstFeature,
			"threshold":     s.Threshold,
		},
	}, nil
}
