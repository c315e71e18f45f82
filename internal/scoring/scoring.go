// Package scoring wraps the trained ensemble behind the contract the rest
// of the pipeline consumes: binary outlier flags plus a continuous score
// where higher means more anomalous. The underlying model's decision
// function runs the other way (more negative = more anomalous); the sign
// flip happens here, once, and every downstream consumer depends on the
// flipped convention.
package scoring

import (
	"errors"
	"fmt"
	"time"

	"github.com/payguard-ai/payguard/internal/feature"
)

// ErrModelUnavailable is returned when no trained model is loaded. This is
// a service condition, not a data error: scoring requests cannot proceed
// until an artifact is trained or restored.
var ErrModelUnavailable = errors.New("anomaly model unavailable")

// Result holds per-record scoring output for one batch, index-aligned with
// the input vectors.
type Result struct {
	Flags          []bool      // outlier partition from the model's trained cutoff
	Scores         []float64   // inverted decision values: higher = more anomalous
	Contributions  [][]float64 // per-feature attribution, only for flagged records
	ModelTrainedAt time.Time
}

// Scorer scores feature-vector batches against the currently loaded model.
type Scorer struct {
	models *Holder
}

// NewScorer returns a Scorer reading from the given model holder.
func NewScorer(models *Holder) *Scorer {
	return &Scorer{models: models}
}

// Score evaluates a batch. The model reference is snapshotted once, so a
// concurrent retrain swap never produces a batch scored by two different
// models.
func (s *Scorer) Score(vectors []feature.Vector) (*Result, error) {
	model := s.models.Current()
	if model == nil {
		return nil, ErrModelUnavailable
	}

	res := &Result{
		Flags:          make([]bool, len(vectors)),
		Scores:         make([]float64, len(vectors)),
		Contributions:  make([][]float64, len(vectors)),
		ModelTrainedAt: model.TrainedAt,
	}

	for i, vec := range vectors {
		x := vec.Values()
		decision, err := model.Decision(x)
		if err != nil {
			return nil, fmt.Errorf("score record %d: %w", i, err)
		}
		res.Scores[i] = -decision
		res.Flags[i] = decision < 0
		if res.Flags[i] {
			contribs, err := model.Contributions(x)
			if err != nil {
				return nil, fmt.Errorf("attribute record %d: %w", i, err)
			}
			res.Contributions[i] = contribs
		}
	}
	return res, nil
}

// NormalizeDisplay min-max scales inverted scores into [0, 1] for display.
// The scaling is per batch; when all scores are equal the normalized value
// is defined as 0 for every record.
func NormalizeDisplay(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	if hi <= lo {
		return out
	}
	for i, s := range scores {
		out[i] = (s - lo) / (hi - lo)
	}
	return out
}
