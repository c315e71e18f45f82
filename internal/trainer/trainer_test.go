package trainer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payguard-ai/payguard/internal/config"
	"github.com/payguard-ai/payguard/internal/forest"
	"github.com/payguard-ai/payguard/internal/schema"
)

// writeBaselineCSV writes n ordinary payroll rows to a temp CSV file.
func writeBaselineCSV(t *testing.T, dir string, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("employee_id,name,department,email,phone_number,salary\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "E%d,Employee %d,Engineering,e%d@corp.example,555-%04d,%d\n",
			i, i, i, i, 60000+i*37)
	}
	path := filepath.Join(dir, "baseline.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func modelCfg(dir string) config.ModelConfig {
	return config.ModelConfig{
		Path:          filepath.Join(dir, "model", "isolation_forest.json"),
		Trees:         30,
		SubsampleSize: 64,
		Contamination: 0.05,
		Seed:          42,
	}
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "data.csv")
	content := "employee_id,name,date_of_hiring,salary\nE1,Jane,2020-01-01,50000\nE2,,2021-02-02,\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(content), 0o644))

	records, err := LoadCSV(csvPath)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "E1", records[0]["employee_id"])
	assert.Equal(t, "50000", records[0]["salary"])
	// Header variants are standardized.
	assert.Equal(t, "2020-01-01", records[0]["hire_date"])

	// Empty cells are missing, not empty strings.
	_, hasName := records[1]["name"]
	assert.False(t, hasName)
	_, hasSalary := records[1]["salary"]
	assert.False(t, hasSalary)
}

func TestLoadCSVRaggedRows(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "ragged.csv")
	content := "employee_id,name,salary\nE1,Jane\nE2,Bob,100,extra\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(content), 0o644))

	records, err := LoadCSV(csvPath)
	require.NoError(t, err)
	require.Len(t, records, 2)
	_, hasSalary := records[0]["salary"]
	assert.False(t, hasSalary)
	assert.Equal(t, "100", records[1]["salary"])
}

func TestLoadCSVMissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestTrainFitsAndPersists(t *testing.T) {
	dir := t.TempDir()
	baseline := writeBaselineCSV(t, dir, 120)
	cfg := modelCfg(dir)

	tr := New(cfg, []string{baseline}, nil)
	model, err := tr.Train(nil)
	require.NoError(t, err)
	assert.Equal(t, 120, model.TrainedOn)

	loaded, err := forest.Load(cfg.Path)
	require.NoError(t, err)
	assert.Equal(t, model.Offset, loaded.Offset)
	assert.Equal(t, model.TrainedOn, loaded.TrainedOn)
}

func TestTrainAppendsExtraRecords(t *testing.T) {
	dir := t.TempDir()
	baseline := writeBaselineCSV(t, dir, 80)

	extra := []schema.RawRecord{
		{"employee_id": "X1", "name": "Extra", "department": "Sales", "salary": 70000.0},
	}
	tr := New(modelCfg(dir), []string{baseline}, nil)
	model, err := tr.Train(extra)
	require.NoError(t, err)
	assert.Equal(t, 81, model.TrainedOn)
}

func TestTrainSkipsInvalidRows(t *testing.T) {
	dir := t.TempDir()
	baseline := writeBaselineCSV(t, dir, 60)

	extra := []schema.RawRecord{
		{"salary": 100.0}, // no identity fields
	}
	tr := New(modelCfg(dir), []string{baseline}, nil)
	model, err := tr.Train(extra)
	require.NoError(t, err)
	assert.Equal(t, 60, model.TrainedOn)
}

func TestTrainEmptyCorpus(t *testing.T) {
	tr := New(modelCfg(t.TempDir()), nil, nil)
	_, err := tr.Train(nil)
	require.Error(t, err)
}

func TestTrainFailureLeavesArtifactUntouched(t *testing.T) {
	dir := t.TempDir()
	baseline := writeBaselineCSV(t, dir, 100)
	cfg := modelCfg(dir)

	tr := New(cfg, []string{baseline}, nil)
	first, err := tr.Train(nil)
	require.NoError(t, err)

	// A second run against a missing corpus fails before touching disk.
	broken := New(cfg, []string{filepath.Join(dir, "missing.csv")}, nil)
	_, err = broken.Train(nil)
	require.Error(t, err)

	loaded, err := forest.Load(cfg.Path)
	require.NoError(t, err)
	assert.Equal(t, first.Offset, loaded.Offset)
	assert.Equal(t, first.TrainedOn, loaded.TrainedOn)
}
