package forest

// Contributions attributes a record's decision value to individual
// features by leave-one-feature-out perturbation: feature j's contribution
// is Decision(x) - Decision(x with x[j] replaced by the feature's training
// median). A feature that drags the record toward the outlier side yields
// a negative contribution, so "most negative" means "most anomaly-driving"
// for the explanation layer.
func (m *Model) Contributions(x []float64) ([]float64, error) {
	base, err := m.Decision(x)
	if err != nil {
		return nil, err
	}

	contribs := make([]float64, m.NumFeatures)
	perturbed := append([]float64(nil), x...)
	for j := 0; j < m.NumFeatures; j++ {
		if x[j] == m.FeatureMedians[j] {
			continue
		}
		perturbed[j] = m.FeatureMedians[j]
		d, err := m.Decision(perturbed)
		if err != nil {
			return nil, err
		}
		contribs[j] = base - d
		perturbed[j] = x[j]
	}
	return contribs, nil
}
