// Package forest implements the isolation-forest ensemble behind the
// anomaly scorer: seeded training, a signed decision function with the
// outlier cutoff fixed at fit time, and per-feature attribution for
// explanations.
package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

var (
	// ErrNotFitted is returned when scoring is attempted without trees.
	ErrNotFitted = errors.New("isolation forest is not fitted")
	// ErrShapeMismatch is returned when a vector's width differs from the
	// width the model was trained on.
	ErrShapeMismatch = errors.New("feature vector width does not match trained model")
)

// Options control a training run.
type Options struct {
	Trees         int
	SubsampleSize int
	Contamination float64 // expected outlier share; fixes the decision offset
	Seed          int64
}

// node is one split in an isolation tree. Leaves keep only their size.
type node struct {
	SplitFeature int     `json:"f,omitempty"`
	SplitValue   float64 `json:"v,omitempty"`
	Left         *node   `json:"l,omitempty"`
	Right        *node   `json:"r,omitempty"`
	Size         int     `json:"n"`
	Leaf         bool    `json:"leaf,omitempty"`
}

// Model is a fitted ensemble. It is immutable after Fit; concurrent reads
// need no locking.
type Model struct {
	TreeRoots      []*node   `json:"trees"`
	NumFeatures    int       `json:"num_features"`
	FeatureNames   []string  `json:"feature_names"`
	SubsampleSize  int       `json:"subsample_size"`
	Contamination  float64   `json:"contamination"`
	Seed           int64     `json:"seed"`
	Offset         float64   `json:"offset"` // anomaly-score cutoff: Decision = Offset - AnomalyScore
	FeatureMedians []float64 `json:"feature_medians"`
	TrainedAt      time.Time `json:"trained_at"`
	TrainedOn      int       `json:"trained_on"`
}

// Fit trains a fresh forest on the given matrix. Rows are samples, columns
// are features in the order of featureNames. Training is deterministic for
// a fixed seed and input.
func Fit(data [][]float64, featureNames []string, opts Options) (*Model, error) {
	if len(data) == 0 {
		return nil, errors.New("training data is empty")
	}
	width := len(data[0])
	if width == 0 {
		return nil, errors.New("training data has zero-width rows")
	}
	if len(featureNames) != width {
		return nil, fmt.Errorf("got %d feature names for %d columns", len(featureNames), width)
	}
	for i, row := range data {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has width %d, expected %d", i, len(row), width)
		}
	}
	if opts.Trees <= 0 {
		opts.Trees = 100
	}
	if opts.SubsampleSize <= 1 || opts.SubsampleSize > len(data) {
		opts.SubsampleSize = min(256, len(data))
	}
	if opts.Contamination <= 0 || opts.Contamination >= 0.5 {
		opts.Contamination = 0.05
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	maxDepth := int(math.Ceil(math.Log2(float64(opts.SubsampleSize))))
	if maxDepth < 1 {
		maxDepth = 1
	}

	m := &Model{
		TreeRoots:      make([]*node, 0, opts.Trees),
		NumFeatures:    width,
		FeatureNames:   append([]string(nil), featureNames...),
		SubsampleSize:  opts.SubsampleSize,
		Contamination:  opts.Contamination,
		Seed:           opts.Seed,
		FeatureMedians: columnMedians(data),
		TrainedAt:      time.Now().UTC(),
		TrainedOn:      len(data),
	}

	for i := 0; i < opts.Trees; i++ {
		sample := sampleRows(rng, data, opts.SubsampleSize)
		m.TreeRoots = append(m.TreeRoots, buildTree(rng, sample, 0, maxDepth))
	}

	// Fix the classification cutoff at train time: the contamination-rate
	// quantile of training anomaly scores. Scores above it are outliers.
	scores := make([]float64, len(data))
	for i, row := range data {
		scores[i] = m.anomalyScore(row)
	}
	m.Offset = quantile(scores, 1-opts.Contamination)

	return m, nil
}

// AnomalyScore returns the path-length score 2^(-E(h)/c(n)) in (0, 1];
// higher means more isolated, i.e. more anomalous.
func (m *Model) AnomalyScore(x []float64) (float64, error) {
	if m == nil || len(m.TreeRoots) == 0 {
		return 0, ErrNotFitted
	}
	if len(x) != m.NumFeatures {
		return 0, fmt.Errorf("%w: got %d features, trained on %d", ErrShapeMismatch, len(x), m.NumFeatures)
	}
	return m.anomalyScore(x), nil
}

// Decision returns the signed decision value Offset - AnomalyScore.
// Negative means outlier; downstream code flips the sign so that higher
// always reads as more anomalous.
func (m *Model) Decision(x []float64) (float64, error) {
	s, err := m.AnomalyScore(x)
	if err != nil {
		return 0, err
	}
	return m.Offset - s, nil
}

// Predict reports whether x falls on the outlier side of the cutoff.
func (m *Model) Predict(x []float64) (bool, error) {
	d, err := m.Decision(x)
	if err != nil {
		return false, err
	}
	return d < 0, nil
}

func (m *Model) anomalyScore(x []float64) float64 {
	total := 0.0
	for _, root := range m.TreeRoots {
		total += pathLength(root, x, 0)
	}
	avg := total / float64(len(m.TreeRoots))
	c := averagePathLength(m.SubsampleSize)
	if c == 0 {
		return 0
	}
	return math.Pow(2, -avg/c)
}

func buildTree(rng *rand.Rand, data [][]float64, depth, maxDepth int) *node {
	if len(data) <= 1 || depth >= maxDepth || allIdentical(data) {
		return &node{Size: len(data), Leaf: true}
	}

	splitFeature := rng.Intn(len(data[0]))
	minVal, maxVal := featureRange(data, splitFeature)
	if minVal == maxVal {
		// Constant column; try the remaining ones before giving up.
		splitFeature, minVal, maxVal = pickSplittableFeature(rng, data, splitFeature)
		if minVal == maxVal {
			return &node{Size: len(data), Leaf: true}
		}
	}
	splitValue := minVal + rng.Float64()*(maxVal-minVal)

	var left, right [][]float64
	for _, row := range data {
		if row[splitFeature] < splitValue {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &node{Size: len(data), Leaf: true}
	}

	return &node{
		SplitFeature: splitFeature,
		SplitValue:   splitValue,
		Left:         buildTree(rng, left, depth+1, maxDepth),
		Right:        buildTree(rng, right, depth+1, maxDepth),
		Size:         len(data),
	}
}

func pickSplittableFeature(rng *rand.Rand, data [][]float64, tried int) (int, float64, float64) {
	width := len(data[0])
	start := rng.Intn(width)
	for i := 0; i < width; i++ {
		f := (start + i) % width
		if f == tried {
			continue
		}
		lo, hi := featureRange(data, f)
		if lo != hi {
			return f, lo, hi
		}
	}
	return tried, 0, 0
}

func pathLength(n *node, x []float64, depth int) float64 {
	if n.Leaf {
		return float64(depth) + averagePathLength(n.Size)
	}
	if x[n.SplitFeature] < n.SplitValue {
		return pathLength(n.Left, x, depth+1)
	}
	return pathLength(n.Right, x, depth+1)
}

// averagePathLength is c(n), the expected path length of an unsuccessful
// BST search: 2H(n-1) - 2(n-1)/n.
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	if n == 2 {
		return 1
	}
	return 2*harmonic(n-1) - 2*float64(n-1)/float64(n)
}

const eulerMascheroni = 0.5772156649

func harmonic(n int) float64 {
	return math.Log(float64(n)) + eulerMascheroni
}

func sampleRows(rng *rand.Rand, data [][]float64, size int) [][]float64 {
	if size > len(data) {
		size = len(data)
	}
	shuffled := make([][]float64, len(data))
	copy(shuffled, data)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:size]
}

func allIdentical(data [][]float64) bool {
	first := data[0]
	for _, row := range data[1:] {
		for j := range first {
			if math.Abs(row[j]-first[j]) > 1e-10 {
				return false
			}
		}
	}
	return true
}

func featureRange(data [][]float64, f int) (float64, float64) {
	lo, hi := data[0][f], data[0][f]
	for _, row := range data {
		if row[f] < lo {
			lo = row[f]
		}
		if row[f] > hi {
			hi = row[f]
		}
	}
	return lo, hi
}

func columnMedians(data [][]float64) []float64 {
	width := len(data[0])
	medians := make([]float64, width)
	col := make([]float64, len(data))
	for j := 0; j < width; j++ {
		for i, row := range data {
			col[i] = row[j]
		}
		medians[j] = median(col)
	}
	return medians
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// quantile returns the q-th quantile (0..1) of vals with nearest-rank
// semantics.
func quantile(vals []float64, q float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(q*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
