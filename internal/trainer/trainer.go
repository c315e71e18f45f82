// Package trainer fits the anomaly model offline from a baseline corpus of
// mostly-normal payroll records and persists the artifact. Training and
// inference share the exact same normalization and feature derivation
// functions; feeding the model vectors derived any other way makes its
// scores meaningless.
package trainer

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/payguard-ai/payguard/internal/config"
	"github.com/payguard-ai/payguard/internal/feature"
	"github.com/payguard-ai/payguard/internal/forest"
	"github.com/payguard-ai/payguard/internal/schema"
)

// Trainer fits and persists the ensemble model.
type Trainer struct {
	modelCfg config.ModelConfig
	baseline []string // CSV paths with the mostly-normal corpus
	logger   *zap.Logger
}

// New returns a Trainer for the given model config and baseline corpus.
func New(modelCfg config.ModelConfig, baselinePaths []string, logger *zap.Logger) *Trainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trainer{modelCfg: modelCfg, baseline: baselinePaths, logger: logger}
}

// Train loads the baseline corpus, appends any operator-supplied extra
// records, fits a fresh forest, and persists it atomically. This is full
// retraining, not an incremental update: the previous artifact is only
// replaced after the new one is completely written, and on any failure
// the artifact on disk stays untouched.
func (t *Trainer) Train(extra []schema.RawRecord) (*forest.Model, error) {
	raw, err := t.loadBaseline()
	if err != nil {
		return nil, err
	}
	raw = append(raw, extra...)
	if len(raw) == 0 {
		return nil, errors.New("training corpus is empty")
	}

	records, rowErrs, err := schema.Normalize(raw)
	if err != nil {
		return nil, errors.Wrap(err, "normalize training corpus")
	}
	if len(rowErrs) > 0 {
		t.logger.Warn("skipped invalid training rows",
			zap.Int("skipped", len(rowErrs)),
			zap.Int("accepted", len(records)))
	}

	vectors := feature.Derive(records)
	matrix := make([][]float64, len(vectors))
	for i, v := range vectors {
		matrix[i] = v.Values()
	}

	t.logger.Info("fitting isolation forest",
		zap.Int("records", len(matrix)),
		zap.Int("trees", t.modelCfg.Trees),
		zap.Float64("contamination", t.modelCfg.Contamination),
		zap.Int64("seed", t.modelCfg.Seed))

	model, err := forest.Fit(matrix, feature.Names(), forest.Options{
		Trees:         t.modelCfg.Trees,
		SubsampleSize: t.modelCfg.SubsampleSize,
		Contamination: t.modelCfg.Contamination,
		Seed:          t.modelCfg.Seed,
	})
	if err != nil {
		return nil, errors.Wrap(err, "fit model")
	}

	if err := model.Save(t.modelCfg.Path); err != nil {
		return nil, errors.Wrapf(err, "persist model to %s", t.modelCfg.Path)
	}

	t.logger.Info("model trained and persisted",
		zap.String("path", t.modelCfg.Path),
		zap.Int("trained_on", model.TrainedOn),
		zap.Time("trained_at", model.TrainedAt))
	return model, nil
}

func (t *Trainer) loadBaseline() ([]schema.RawRecord, error) {
	var all []schema.RawRecord
	for _, path := range t.baseline {
		records, err := LoadCSV(path)
		if err != nil {
			return nil, errors.Wrapf(err, "load baseline corpus %s", path)
		}
		all = append(all, records...)
	}
	return all, nil
}
