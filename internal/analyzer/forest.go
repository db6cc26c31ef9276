package analyzer

import (
	"math"
	"math/rand"
	"sort"

	"ransomwatch/internal/domain"
)

const eulerMascheroni = 0.5772156649015329

// ForestOptions tune the isolation forest backend
type ForestOptions struct {
	Estimators    int     `json:"estimators"`
	SubsampleSize int     `json:"subsample_size"`
	Contamination float64 `json:"contamination"`
	Seed          int64   `json:"seed"`
	MinSamples    int     `json:"min_samples"`
}

// DefaultForestOptions mirror the tuning the detector ships with: 200
// trees, 256-point subsamples, 1% expected contamination, fixed seed
// for reproducible scoring.
func DefaultForestOptions() ForestOptions {
	return ForestOptions{
		Estimators:    200,
		SubsampleSize: 256,
		Contamination: 0.01,
		Seed:          42,
		MinSamples:    DefaultMinTrainingSamples,
	}
}

// forestNode is one node of an isolation tree. Leaves carry the number
// of training points that reached them so path lengths can be adjusted
// by the expected depth of an unbuilt subtree.
type forestNode struct {
	SplitFeature int         `json:"f,omitempty"`
	SplitValue   float64     `json:"v,omitempty"`
	Left         *forestNode `json:"l,omitempty"`
	Right        *forestNode `json:"r,omitempty"`
	Size         int         `json:"n,omitempty"`
	Leaf         bool        `json:"leaf,omitempty"`
}

// IsolationForest scores feature vectors by how few random splits are
// needed to isolate them. Inputs are standard-scaled before fitting and
// scoring. Scores follow the usual convention: around -0.5 for normal
// points, approaching -1.0 for isolated ones.
type IsolationForest struct {
	Options ForestOptions `json:"options"`

	Trees []*forestNode `json:"trees"`

	// EffectiveSubsample is the subsample size actually used at fit
	// time, clamped to the training-set size. Path-length
	// normalization must use this, not the configured size, or small
	// baselines skew every score low.
	EffectiveSubsample int `json:"effective_subsample"`

	FeatureDim  int       `json:"feature_dim"`
	ScaleMeans  []float64 `json:"scale_means"`
	ScaleStds   []float64 `json:"scale_stds"`
	ScoreOffset float64   `json:"score_offset"`
	ScoreMean   float64   `json:"score_mean"`
	ScoreStd    float64   `json:"score_std"`
	Trained     bool      `json:"trained"`
}

// NewIsolationForest creates an untrained forest backend
func NewIsolationForest(opts ForestOptions) *IsolationForest {
	if opts.Estimators <= 0 {
		opts.Estimators = DefaultForestOptions().Estimators
	}
	if opts.SubsampleSize <= 0 {
		opts.SubsampleSize = DefaultForestOptions().SubsampleSize
	}
	if opts.Contamination <= 0 || opts.Contamination >= 0.5 {
		opts.Contamination = DefaultForestOptions().Contamination
	}
	if opts.MinSamples <= 0 {
		opts.MinSamples = DefaultMinTrainingSamples
	}
	return &IsolationForest{Options: opts}
}

// IsTrained reports whether Train completed successfully
func (f *IsolationForest) IsTrained() bool {
	return f.Trained
}

// Dimension returns the feature dimension the forest was trained on, 0
// when untrained.
func (f *IsolationForest) Dimension() int {
	return f.FeatureDim
}

// Train fits the scaler, grows the trees and derives the anomaly
// cutoff from the contamination quantile of the training scores.
func (f *IsolationForest) Train(features []domain.FeatureVector) error {
	if err := checkTrainingMatrix(features, f.Options.MinSamples); err != nil {
		return err
	}

	f.FeatureDim = len(features[0])
	f.fitScaler(features)

	scaled := make([][]float64, len(features))
	for i, v := range features {
		scaled[i] = f.scale(v)
	}

	subsample := f.Options.SubsampleSize
	if subsample > len(scaled) {
		subsample = len(scaled)
	}
	f.EffectiveSubsample = subsample
	heightLimit := int(math.Ceil(math.Log2(float64(subsample))))
	if heightLimit < 1 {
		heightLimit = 1
	}

	rng := rand.New(rand.NewSource(f.Options.Seed))
	f.Trees = make([]*forestNode, f.Options.Estimators)
	for i := range f.Trees {
		sample := bootstrapSample(scaled, subsample, rng)
		f.Trees[i] = growTree(sample, 0, heightLimit, rng)
	}

	// Training score distribution: used for the contamination cutoff
	// and the z-score diagnostics in analysis details.
	scores := make([]float64, len(scaled))
	for i, p := range scaled {
		scores[i] = f.scoreScaled(p)
	}
	f.ScoreOffset = quantile(scores, f.Options.Contamination)
	f.ScoreMean, f.ScoreStd = meanStd(scores)

	f.Trained = true
	return nil
}

// Analyze scores one vector and applies the trained cutoff
func (f *IsolationForest) Analyze(vector domain.FeatureVector) (*domain.AnalysisResult, error) {
	if !f.Trained {
		return nil, domain.ErrNotTrained
	}
	if len(vector) != f.FeatureDim {
		return nil, &domain.DimensionMismatchError{Want: f.FeatureDim, Got: len(vector)}
	}

	score := f.scoreScaled(f.scale(vector))
	isAnomaly := score < f.ScoreOffset

	prediction := 1
	if isAnomaly {
		prediction = -1
	}

	zScore := 0.0
	if f.ScoreStd > 0 {
		zScore = (score - f.ScoreMean) / f.ScoreStd
	}

	return &domain.AnalysisResult{
		IsAnomaly: isAnomaly,
		RawScore:  score,
		Details: map[string]interface{}{
			"backend":      "isolation_forest",
			"prediction":   prediction,
			"score_offset": f.ScoreOffset,
			"score_z":      zScore,
			"estimators":   len(f.Trees),
		},
	}, nil
}

func (f *IsolationForest) fitScaler(features []domain.FeatureVector) {
	dim := f.FeatureDim
	f.ScaleMeans = make([]float64, dim)
	f.ScaleStds = make([]float64, dim)

	n := float64(len(features))
	for j := 0; j < dim; j++ {
		var sum float64
		for _, v := range features {
			sum += v[j]
		}
		f.ScaleMeans[j] = sum / n
	}
	for j := 0; j < dim; j++ {
		var variance float64
		for _, v := range features {
			d := v[j] - f.ScaleMeans[j]
			variance += d * d
		}
		std := math.Sqrt(variance / n)
		if std == 0 {
			std = 1 // constant feature, leave centered values at zero
		}
		f.ScaleStds[j] = std
	}
}

func (f *IsolationForest) scale(v domain.FeatureVector) []float64 {
	scaled := make([]float64, len(v))
	for j, x := range v {
		scaled[j] = (x - f.ScaleMeans[j]) / f.ScaleStds[j]
	}
	return scaled
}

// scoreScaled returns -2^(-E[h(x)]/c(n)), matching the sklearn
// score_samples convention.
func (f *IsolationForest) scoreScaled(point []float64) float64 {
	subsample := f.EffectiveSubsample
	var total float64
	for _, tree := range f.Trees {
		total += pathLength(tree, point, 0)
	}
	avgPath := total / float64(len(f.Trees))
	return -math.Pow(2, -avgPath/averagePathLength(subsample))
}

func bootstrapSample(data [][]float64, size int, rng *rand.Rand) [][]float64 {
	sample := make([][]float64, size)
	for i := range sample {
		sample[i] = data[rng.Intn(len(data))]
	}
	return sample
}

func growTree(data [][]float64, depth, heightLimit int, rng *rand.Rand) *forestNode {
	if depth >= heightLimit || len(data) <= 1 {
		return &forestNode{Leaf: true, Size: len(data)}
	}

	dim := len(data[0])
	feature, splitValue, ok := pickSplit(data, dim, rng)
	if !ok {
		// All points identical across every feature
		return &forestNode{Leaf: true, Size: len(data)}
	}

	var left, right [][]float64
	for _, p := range data {
		if p[feature] < splitValue {
			left = append(left, p)
		} else {
			right = append(right, p)
		}
	}

	return &forestNode{
		SplitFeature: feature,
		SplitValue:   splitValue,
		Left:         growTree(left, depth+1, heightLimit, rng),
		Right:        growTree(right, depth+1, heightLimit, rng),
	}
}

// pickSplit chooses a random feature with nonzero spread and a uniform
// split point inside its range.
func pickSplit(data [][]float64, dim int, rng *rand.Rand) (int, float64, bool) {
	order := rng.Perm(dim)
	for _, feature := range order {
		lo, hi := data[0][feature], data[0][feature]
		for _, p := range data {
			if p[feature] < lo {
				lo = p[feature]
			}
			if p[feature] > hi {
				hi = p[feature]
			}
		}
		if hi > lo {
			return feature, lo + rng.Float64()*(hi-lo), true
		}
	}
	return 0, 0, false
}

func pathLength(node *forestNode, point []float64, depth int) float64 {
	if node.Leaf {
		return float64(depth) + averagePathLength(node.Size)
	}
	if point[node.SplitFeature] < node.SplitValue {
		return pathLength(node.Left, point, depth+1)
	}
	return pathLength(node.Right, point, depth+1)
}

// averagePathLength is c(n), the expected path length of an unsuccessful
// BST search among n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		h := math.Log(float64(n-1)) + eulerMascheroni
		return 2*h - 2*float64(n-1)/float64(n)
	}
}

func quantile(values []float64, q float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(q * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func meanStd(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return mean, math.Sqrt(variance / float64(len(values)))
}
