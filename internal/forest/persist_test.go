package forest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	data := clusteredData(120, ghostRow())
	m, err := Fit(data, testFeatureNames, Options{Trees: 30, Contamination: 0.05, Seed: 42})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model", "isolation_forest.json")
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.Offset, loaded.Offset)
	assert.Equal(t, m.NumFeatures, loaded.NumFeatures)
	assert.Equal(t, m.FeatureNames, loaded.FeatureNames)
	assert.Equal(t, m.FeatureMedians, loaded.FeatureMedians)
	assert.Equal(t, m.TrainedOn, loaded.TrainedOn)

	// The reloaded forest must score byte-for-byte identically.
	for _, row := range data {
		want, err := m.AnomalyScore(row)
		require.NoError(t, err)
		got, err := loaded.AnomalyScore(row)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestSaveReplacesExistingArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")

	first, err := Fit(clusteredData(60), testFeatureNames, Options{Trees: 10, Seed: 1})
	require.NoError(t, err)
	require.NoError(t, first.Save(path))

	second, err := Fit(clusteredData(90), testFeatureNames, Options{Trees: 10, Seed: 2})
	require.NoError(t, err)
	require.NoError(t, second.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90, loaded.TrainedOn)
	assert.Equal(t, second.Offset, loaded.Offset)
}

func TestSaveRejectsUnfitted(t *testing.T) {
	var m *Model
	assert.True(t, errors.Is(m.Save("anywhere.json"), ErrNotFitted))
	assert.True(t, errors.Is((&Model{}).Save("anywhere.json"), ErrNotFitted))
}

func TestLoadMissingArtifact(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.True(t, errors.Is(err, ErrArtifactNotFound))
}

func TestLoadCorruptArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrArtifactNotFound))
}

func TestLoadEmptyModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}
