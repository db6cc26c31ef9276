// Package analyzer provides the pluggable anomaly-scoring backends used
// by the detection engine. A backend is fit once on a baseline of
// normal-activity feature vectors and then scores one vector per
// detection cycle. Backends must be deterministic for a fixed seed and
// identical training data.
package analyzer

import (
	"ransomwatch/internal/domain"
)

// Analyzer is the scoring backend contract. Train fails when given
// fewer than the configured minimum sample count or vectors of
// inconsistent dimension; Analyze fails with domain.ErrNotTrained
// before training and with a DimensionMismatchError when the vector
// shape disagrees with the trained dimension.
type Analyzer interface {
	Train(features []domain.FeatureVector) error
	Analyze(vector domain.FeatureVector) (*domain.AnalysisResult, error)
	IsTrained() bool
	Dimension() int
}

// DefaultMinTrainingSamples is the minimum baseline size a backend
// accepts unless configured otherwise.
const DefaultMinTrainingSamples = 30

// checkTrainingMatrix validates sample count and dimensional
// consistency of a training set.
func checkTrainingMatrix(features []domain.FeatureVector, minSamples int) error {
	if len(features) < minSamples {
		return &domain.InvalidTrainingDataError{
			Reason: "insufficient training samples",
		}
	}

	dim := len(features[0])
	for _, f := range features {
		if len(f) != dim {
			return &domain.DimensionMismatchError{Want: dim, Got: len(f)}
		}
	}

	return nil
}
