package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRow(id string) RawRecord {
	return RawRecord{
		"employee_id":  id,
		"name":         "Jane Doe",
		"department":   "Engineering",
		"salary":       75000.0,
		"email":        "jane@corp.example",
		"phone_number": "555-0100",
	}
}

func TestNormalizeAcceptsValidRows(t *testing.T) {
	records, rowErrs, err := Normalize([]RawRecord{validRow("E1"), validRow("E2")})
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, records, 2)
	assert.Equal(t, "E1", records[0].EmployeeID)
	assert.Equal(t, "Jane Doe", records[0].Name)
	assert.Equal(t, "Engineering", records[0].Department)
	assert.Equal(t, 75000.0, records[0].Salary)
	require.NotNil(t, records[0].Email)
	assert.Equal(t, "jane@corp.example", *records[0].Email)
}

func TestNormalizeRejectsMissingIdentityFields(t *testing.T) {
	missingID := validRow("E1")
	delete(missingID, "employee_id")
	emptyName := validRow("E2")
	emptyName["name"] = "  "
	missingDept := validRow("E3")
	delete(missingDept, "department")

	records, rowErrs, err := Normalize([]RawRecord{missingID, validRow("E4"), emptyName, missingDept})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "E4", records[0].EmployeeID)

	// Row numbers are 1-based against the uploaded batch.
	require.Len(t, rowErrs, 3)
	assert.Equal(t, 1, rowErrs[0].Row)
	assert.Contains(t, rowErrs[0].Reason, "employee_id")
	assert.Equal(t, 3, rowErrs[1].Row)
	assert.Contains(t, rowErrs[1].Reason, "name")
	assert.Equal(t, 4, rowErrs[2].Row)
	assert.Contains(t, rowErrs[2].Reason, "department")
}

func TestNormalizeToleratesBadSalary(t *testing.T) {
	missing := validRow("E1")
	delete(missing, "salary")
	garbage := validRow("E2")
	garbage["salary"] = "not-a-number"
	negative := validRow("E3")
	negative["salary"] = -500.0
	numericString := validRow("E4")
	numericString["salary"] = "64000.50"

	records, rowErrs, err := Normalize([]RawRecord{missing, garbage, negative, numericString})
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, records, 4)
	assert.Equal(t, 0.0, records[0].Salary)
	assert.Equal(t, 0.0, records[1].Salary)
	assert.Equal(t, 0.0, records[2].Salary)
	assert.Equal(t, 64000.50, records[3].Salary)
}

func TestNormalizeCoercesNumericIdentity(t *testing.T) {
	row := validRow("ignored")
	row["employee_id"] = 1042.0 // ids arrive as JSON numbers all the time

	records, _, err := Normalize([]RawRecord{row})
	require.NoError(t, err)
	assert.Equal(t, "1042", records[0].EmployeeID)
}

func TestNormalizeOptionalFields(t *testing.T) {
	row := validRow("E1")
	delete(row, "email")
	row["phone_number"] = ""
	row["days_present"] = "12"

	records, _, err := Normalize([]RawRecord{row})
	require.NoError(t, err)
	assert.Nil(t, records[0].Email)
	assert.Nil(t, records[0].PhoneNumber)
	require.NotNil(t, records[0].DaysPresent)
	assert.Equal(t, 12.0, *records[0].DaysPresent)
}

func TestNormalizeEmptyBatchFails(t *testing.T) {
	records, rowErrs, err := Normalize(nil)
	assert.Nil(t, records)
	assert.Empty(t, rowErrs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoValidRecords))
}

func TestNormalizeAllInvalidFailsBatch(t *testing.T) {
	bad := RawRecord{"salary": 100.0}
	records, rowErrs, err := Normalize([]RawRecord{bad, bad, bad, bad})
	assert.Nil(t, records)
	assert.Len(t, rowErrs, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoValidRecords))
	// The batch error names the expected schema and flags the first rows.
	assert.Contains(t, err.Error(), "employee_id, name, department")
	assert.Contains(t, err.Error(), "row 1:")
	assert.NotContains(t, err.Error(), "row 4:")
}

func TestNormalizeOrderPreserved(t *testing.T) {
	batch := []RawRecord{validRow("A"), validRow("B"), validRow("C")}
	records, _, err := Normalize(batch)
	require.NoError(t, err)
	ids := []string{records[0].EmployeeID, records[1].EmployeeID, records[2].EmployeeID}
	assert.Equal(t, []string{"A", "B", "C"}, ids)
}
