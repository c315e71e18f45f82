package scoring

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payguard-ai/payguard/internal/feature"
	"github.com/payguard-ai/payguard/internal/forest"
)

func normalVector(rng *rand.Rand) feature.Vector {
	return feature.Vector{
		Salary:          60000 + rng.Float64()*10000,
		EmailCollisions: 1,
		PhoneCollisions: 1,
		SalaryVariance:  rng.Float64() * 0.1,
		Completeness:    100,
	}
}

func ghostVector() feature.Vector {
	return feature.Vector{
		Salary:          950000,
		EmailCollisions: 4,
		PhoneCollisions: 4,
		SalaryVariance:  9.5,
		Completeness:    40,
	}
}

func fitTestModel(t *testing.T) *forest.Model {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	matrix := make([][]float64, 0, 201)
	for i := 0; i < 200; i++ {
		matrix = append(matrix, normalVector(rng).Values())
	}
	matrix = append(matrix, ghostVector().Values())

	m, err := forest.Fit(matrix, feature.Names(), forest.Options{
		Trees:         100,
		Contamination: 0.05,
		Seed:          42,
	})
	require.NoError(t, err)
	return m
}

func TestScoreWithoutModel(t *testing.T) {
	s := NewScorer(NewHolder(nil))
	_, err := s.Score([]feature.Vector{ghostVector()})
	assert.True(t, errors.Is(err, ErrModelUnavailable))
}

func TestScoreFlipsSignAndFlags(t *testing.T) {
	model := fitTestModel(t)
	s := NewScorer(NewHolder(model))

	rng := rand.New(rand.NewSource(11))
	vectors := []feature.Vector{normalVector(rng), ghostVector()}
	res, err := s.Score(vectors)
	require.NoError(t, err)
	require.Len(t, res.Scores, 2)

	// Higher inverted score = more anomalous; the flag tracks positivity.
	assert.Greater(t, res.Scores[1], res.Scores[0])
	assert.True(t, res.Flags[1])
	assert.Positive(t, res.Scores[1])
	assert.Equal(t, model.TrainedAt, res.ModelTrainedAt)

	for i := range vectors {
		d, err := model.Decision(vectors[i].Values())
		require.NoError(t, err)
		assert.Equal(t, -d, res.Scores[i])
		assert.Equal(t, d < 0, res.Flags[i])
	}
}

func TestScoreContributionsOnlyForFlagged(t *testing.T) {
	model := fitTestModel(t)
	s := NewScorer(NewHolder(model))

	rng := rand.New(rand.NewSource(11))
	res, err := s.Score([]feature.Vector{normalVector(rng), ghostVector()})
	require.NoError(t, err)

	assert.Nil(t, res.Contributions[0])
	require.NotNil(t, res.Contributions[1])
	assert.Len(t, res.Contributions[1], len(feature.Names()))
}

func TestScoreEmptyBatch(t *testing.T) {
	s := NewScorer(NewHolder(fitTestModel(t)))
	res, err := s.Score(nil)
	require.NoError(t, err)
	assert.Empty(t, res.Scores)
}

func TestHolderSwap(t *testing.T) {
	h := NewHolder(nil)
	assert.Nil(t, h.Current())

	model := fitTestModel(t)
	h.Swap(model)
	assert.Same(t, model, h.Current())

	s := NewScorer(h)
	_, err := s.Score([]feature.Vector{ghostVector()})
	assert.NoError(t, err)
}

func TestNormalizeDisplay(t *testing.T) {
	out := NormalizeDisplay([]float64{-0.2, 0.1, 0.4})
	require.Len(t, out, 3)
	assert.Equal(t, 0.0, out[0])
	assert.InDelta(t, 0.5, out[1], 1e-9)
	assert.Equal(t, 1.0, out[2])
}

func TestNormalizeDisplayFlatBatch(t *testing.T) {
	out := NormalizeDisplay([]float64{0.3, 0.3, 0.3})
	assert.Equal(t, []float64{0, 0, 0}, out)

	assert.Equal(t, []float64{0}, NormalizeDisplay([]float64{42}))
	assert.Empty(t, NormalizeDisplay(nil))
}

func TestClassify(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, RiskLow, Classify(-0.3, th))
	assert.Equal(t, RiskLow, Classify(0, th))
	assert.Equal(t, RiskMedium, Classify(0.01, th))
	assert.Equal(t, RiskMedium, Classify(0.05, th))
	assert.Equal(t, RiskHigh, Classify(0.051, th))
	assert.Equal(t, RiskHigh, Classify(2, th))
}

func TestClassifyMonotonic(t *testing.T) {
	th := DefaultThresholds()
	rank := map[RiskLevel]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2}
	prev := RiskLow
	for _, s := range []float64{-1, -0.1, 0, 0.001, 0.05, 0.0501, 0.5, 10} {
		cur := Classify(s, th)
		assert.GreaterOrEqual(t, rank[cur], rank[prev], "score %v", s)
		prev = cur
	}
}
