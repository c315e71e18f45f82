package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/payguard-ai/payguard/internal/feature"
)

func fptr(f float64) *float64 { return &f }

func TestNotFlaggedIsNormal(t *testing.T) {
	g := New(0.5)
	msg := g.Explain(false, feature.Vector{}, nil, []float64{-5, -5, -5, -5, -5})
	assert.Equal(t, NormalMessage, msg)
}

func TestFromContributionsTopTwo(t *testing.T) {
	g := New(0.5)
	// salary and completeness push hardest toward anomaly.
	contribs := []float64{-0.30, -0.005, 0.02, -0.02, -0.45}
	msg := g.Explain(true, feature.Vector{}, nil, contribs)
	assert.Equal(t, "Flagged mainly due to: profile completeness percentage and salary.", msg)
}

func TestFromContributionsSingleMaterial(t *testing.T) {
	g := New(0.5)
	contribs := []float64{-0.30, -0.003, 0.0, 0.0, 0.0}
	msg := g.Explain(true, feature.Vector{}, nil, contribs)
	assert.Equal(t, "Flagged mainly due to: salary.", msg)
}

func TestFromContributionsNothingMaterial(t *testing.T) {
	g := New(0.5)
	contribs := []float64{-0.002, -0.001, 0.0, 0.003, 0.004}
	msg := g.Explain(true, feature.Vector{}, nil, contribs)
	assert.Equal(t, "Anomalous pattern detected across multiple features.", msg)
}

func TestRuleBasedReasons(t *testing.T) {
	g := New(0.5)
	vec := feature.Vector{
		Salary:          80000,
		EmailCollisions: 3,
		PhoneCollisions: 1,
		SalaryVariance:  1.2,
		Completeness:    60,
	}
	msg := g.Explain(true, vec, fptr(0), nil)
	assert.Contains(t, msg, "Zero attendance recorded despite positive salary.")
	assert.Contains(t, msg, "Email address shared across 3 records.")
	assert.NotContains(t, msg, "Phone number")
	assert.Contains(t, msg, "Profile only 60% complete.")
	assert.Contains(t, msg, "Salary deviates 120% from the department average.")
}

func TestRuleBasedAttendanceNeedsPositiveSalary(t *testing.T) {
	g := New(0.5)
	vec := feature.Vector{Salary: 0, EmailCollisions: 1, PhoneCollisions: 1, Completeness: 100}
	msg := g.Explain(true, vec, fptr(0), nil)
	assert.NotContains(t, msg, "Zero attendance")
}

func TestRuleBasedVarianceCutoff(t *testing.T) {
	g := New(0.5)
	vec := feature.Vector{Salary: 80000, EmailCollisions: 1, PhoneCollisions: 1, SalaryVariance: 0.4, Completeness: 100}
	msg := g.Explain(true, vec, nil, nil)
	// Below the cutoff, no salary callout; nothing fires, so generic.
	assert.Equal(t, "Anomalous pattern detected across multiple features.", msg)
}

func TestRuleBasedMissingAttendance(t *testing.T) {
	g := New(0.5)
	vec := feature.Vector{Salary: 80000, EmailCollisions: 2, PhoneCollisions: 1, Completeness: 100}
	msg := g.Explain(true, vec, nil, nil)
	assert.Equal(t, "Email address shared across 2 records.", msg)
}
