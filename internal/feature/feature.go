// Package feature derives the fixed numeric signal set the anomaly model
// scores. All signals are batch-relative: collision counts and department
// salary variance only mean something inside the batch they were computed
// from, so vectors are derived fresh per analysis and never persisted.
package feature

import (
	"fmt"
	"math"

	"github.com/payguard-ai/payguard/internal/schema"
)

// Feature names, in vector order. Training and inference share this order;
// reordering it invalidates every saved model artifact.
const (
	NameSalary          = "salary"
	NameEmailCollisions = "email_collision_count"
	NamePhoneCollisions = "phone_collision_count"
	NameSalaryVariance  = "department_salary_variance"
	NameCompleteness    = "profile_completeness_percentage"
)

// Count of essential profile fields behind the completeness signal:
// name, department, email, phone_number, salary.
const essentialFieldCount = 5

// Names returns the feature names in vector order.
func Names() []string {
	return []string{NameSalary, NameEmailCollisions, NamePhoneCollisions, NameSalaryVariance, NameCompleteness}
}

// Vector is one record's feature tuple, in the order given by Names.
type Vector struct {
	Salary          float64
	EmailCollisions float64
	PhoneCollisions float64
	SalaryVariance  float64
	Completeness    float64
}

// Values returns the vector as a slice in canonical order.
func (v Vector) Values() []float64 {
	return []float64{v.Salary, v.EmailCollisions, v.PhoneCollisions, v.SalaryVariance, v.Completeness}
}

// Derive computes feature vectors for an accepted-record batch. It is pure
// and order-preserving: output index i describes records[i], and re-running
// on the same batch yields identical vectors.
func Derive(records []schema.EmployeeRecord) []Vector {
	emailCounts := collisionCounts(records, func(r schema.EmployeeRecord) *string { return r.Email }, "unknown_email_")
	phoneCounts := collisionCounts(records, func(r schema.EmployeeRecord) *string { return r.PhoneNumber }, "unknown_phone_")
	variances := departmentSalaryVariance(records)

	vectors := make([]Vector, len(records))
	for i, rec := range records {
		vectors[i] = Vector{
			Salary:          rec.Salary,
			EmailCollisions: fillDefault(float64(emailCounts[i]), 1),
			PhoneCollisions: fillDefault(float64(phoneCounts[i]), 1),
			SalaryVariance:  fillDefault(variances[i], 0),
			Completeness:    fillDefault(completeness(rec), 100),
		}
	}
	return vectors
}

// collisionCounts groups records by an identity-proxy value and returns the
// group size per record (the record itself included, so the minimum is 1).
// Records missing the value get a sentinel unique to their row position, so
// two records that both lack an email never collide with each other.
func collisionCounts(records []schema.EmployeeRecord, value func(schema.EmployeeRecord) *string, sentinelPrefix string) []int {
	keys := make([]string, len(records))
	groups := make(map[string]int, len(records))
	for i, rec := range records {
		v := value(rec)
		if v == nil || *v == "" {
			keys[i] = fmt.Sprintf("%s%d", sentinelPrefix, i)
		} else {
			keys[i] = *v
		}
		groups[keys[i]]++
	}

	counts := make([]int, len(records))
	for i, k := range keys {
		counts[i] = groups[k]
	}
	return counts
}

// departmentSalaryVariance computes |salary - dept mean| / dept mean per
// record, with the mean taken over the current batch. A zero or undefined
// department mean yields 0 rather than a division error; a department whose
// mean is dominated by one member can legitimately report 0 for that
// member.
func departmentSalaryVariance(records []schema.EmployeeRecord) []float64 {
	sums := make(map[string]float64)
	sizes := make(map[string]int)
	for _, rec := range records {
		sums[rec.Department] += rec.Salary
		sizes[rec.Department]++
	}

	out := make([]float64, len(records))
	for i, rec := range records {
		n := sizes[rec.Department]
		if n == 0 {
			continue
		}
		mean := sums[rec.Department] / float64(n)
		if mean == 0 {
			continue
		}
		out[i] = math.Abs(rec.Salary-mean) / mean
	}
	return out
}

// completeness scores how much of the essential profile is filled in, as a
// percentage. After normalization the identity fields and salary are always
// present, so only the optional contact fields can be missing.
func completeness(rec schema.EmployeeRecord) float64 {
	missing := 0
	if rec.Name == "" {
		missing++
	}
	if rec.Department == "" {
		missing++
	}
	if rec.Email == nil {
		missing++
	}
	if rec.PhoneNumber == nil {
		missing++
	}
	return 100 - float64(missing)/essentialFieldCount*100
}

// fillDefault guards the vector's totality: any NaN/Inf left over from
// derivation is replaced with the documented per-feature default so no
// missing entry ever reaches the model.
func fillDefault(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}
