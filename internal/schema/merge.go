package schema

import (
	"fmt"
)

// idColumnAliases are probed in order when joining two uploads.
var idColumnAliases = []string{"employee_id", "Employee_ID", "id", "ID"}

// MergeAttendance left-joins an attendance batch into the payroll batch on
// the employee id column, discovered per batch by probing the known
// aliases. Payroll columns win on name conflicts; attendance rows without
// a payroll match are dropped. Payroll row order is preserved.
func MergeAttendance(payroll, attendance []RawRecord) ([]RawRecord, error) {
	payIDCol, ok := findIDColumn(payroll)
	if !ok {
		return nil, fmt.Errorf("could not find an employee id column in the payroll data (tried %v)", idColumnAliases)
	}
	attIDCol, ok := findIDColumn(attendance)
	if !ok {
		return nil, fmt.Errorf("could not find an employee id column in the attendance data (tried %v)", idColumnAliases)
	}

	// First attendance row per id wins, matching a plain left join.
	attByID := make(map[string]RawRecord, len(attendance))
	for _, rec := range attendance {
		id, ok := idValue(rec, attIDCol)
		if !ok {
			continue
		}
		if _, seen := attByID[id]; !seen {
			attByID[id] = rec
		}
	}

	merged := make([]RawRecord, 0, len(payroll))
	for _, rec := range payroll {
		out := make(RawRecord, len(rec)+4)
		for k, v := range rec {
			out[k] = v
		}
		// Normalize the id column name so downstream lookups are uniform.
		if payIDCol != "employee_id" {
			if v, ok := rec[payIDCol]; ok {
				out["employee_id"] = v
				delete(out, payIDCol)
			}
		}
		if id, ok := idValue(rec, payIDCol); ok {
			if att, found := attByID[id]; found {
				for k, v := range att {
					if k == attIDCol {
						continue
					}
					if _, exists := out[k]; !exists {
						out[k] = v
					}
				}
			}
		}
		merged = append(merged, out)
	}
	return merged, nil
}

// findIDColumn probes alias candidates against the first row that has any
// of them. Heterogeneous uploads keep the same header per batch, so the
// first hit decides for the whole batch.
func findIDColumn(records []RawRecord) (string, bool) {
	for _, rec := range records {
		for _, alias := range idColumnAliases {
			if _, ok := rec[alias]; ok {
				return alias, true
			}
		}
	}
	return "", false
}

func idValue(rec RawRecord, col string) (string, bool) {
	v, ok := rec[col]
	if !ok || v == nil {
		return "", false
	}
	s, ok := asString(v)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
