// Package schema validates raw payroll rows into the canonical employee
// record consumed by the feature and scoring pipeline.
package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// RawRecord is one parsed upload row: column name -> value, loosely typed.
type RawRecord map[string]any

// EmployeeRecord is the canonical, validated shape of one payroll row.
type EmployeeRecord struct {
	EmployeeID  string
	Name        string
	Department  string
	Salary      float64
	Email       *string
	PhoneNumber *string
	DaysPresent *float64
}

// RowError describes one rejected row. Row is 1-based to match the
// uploaded file the operator is looking at.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ErrNoValidRecords is returned when every row in a batch fails validation.
var ErrNoValidRecords = errors.New("no valid records in batch")

// ExpectedColumns is the schema surfaced in batch-level validation errors.
var ExpectedColumns = []string{"employee_id", "name", "department", "email", "phone_number", "salary"}

// requiredFields must resolve to a non-empty string or the row is rejected.
var requiredFields = []string{"employee_id", "name", "department"}

// Normalize coerces a batch of raw rows into canonical records. Rows that
// fail validation are collected as RowErrors and excluded; accepted rows
// keep their input order. When zero rows validate the whole batch fails
// with an error naming the expected schema.
func Normalize(records []RawRecord) ([]EmployeeRecord, []RowError, error) {
	accepted := make([]EmployeeRecord, 0, len(records))
	var rowErrs []RowError

	for i, raw := range records {
		rec, err := normalizeOne(raw)
		if err != nil {
			rowErrs = append(rowErrs, RowError{
				Row:    i + 1,
				Reason: fmt.Sprintf("validation failed: %v", err),
			})
			continue
		}
		accepted = append(accepted, rec)
	}

	if len(accepted) == 0 {
		return nil, rowErrs, batchError(rowErrs)
	}
	return accepted, rowErrs, nil
}

func normalizeOne(raw RawRecord) (EmployeeRecord, error) {
	var rec EmployeeRecord

	for _, field := range requiredFields {
		v, ok := lookup(raw, field)
		if !ok {
			return rec, fmt.Errorf("missing required field %q", field)
		}
		s, ok := asString(v)
		if !ok || s == "" {
			return rec, fmt.Errorf("required field %q is empty or not coercible to text", field)
		}
		switch field {
		case "employee_id":
			rec.EmployeeID = s
		case "name":
			rec.Name = s
		case "department":
			rec.Department = s
		}
	}

	// Missing or malformed salary is tolerated and defaults to 0:
	// malformed identity rejects, malformed money does not.
	if v, ok := lookup(raw, "salary"); ok {
		if f, ok := asFloat(v); ok && f >= 0 {
			rec.Salary = f
		}
	}

	if v, ok := lookup(raw, "email"); ok {
		if s, ok := asString(v); ok && s != "" {
			rec.Email = &s
		}
	}
	if v, ok := lookup(raw, "phone_number"); ok {
		if s, ok := asString(v); ok && s != "" {
			rec.PhoneNumber = &s
		}
	}
	if v, ok := lookup(raw, "days_present", "Days_Present"); ok {
		if f, ok := asFloat(v); ok {
			rec.DaysPresent = &f
		}
	}

	return rec, nil
}

func batchError(rowErrs []RowError) error {
	reasons := make([]string, 0, 3)
	for i, re := range rowErrs {
		if i == 3 {
			break
		}
		reasons = append(reasons, fmt.Sprintf("row %d: %s", re.Row, re.Reason))
	}
	msg := fmt.Sprintf("data validation failed, expected columns: %s", strings.Join(ExpectedColumns, ", "))
	if len(reasons) > 0 {
		msg += "; " + strings.Join(reasons, "; ")
	}
	return fmt.Errorf("%w: %s", ErrNoValidRecords, msg)
}

// lookup returns the first present, non-nil value among the given keys.
func lookup(raw RawRecord, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// asString coerces scalar values to a trimmed string. Numeric identity
// columns (employee ids exported as numbers) are common in real uploads.
func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		// Avoid "1.000000e+05"-style ids for integral values.
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10), true
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return asString(float64(t))
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// asFloat coerces numeric-looking values, including numeric strings.
func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
