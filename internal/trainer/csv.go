package trainer

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/payguard-ai/payguard/internal/schema"
)

// columnRenames standardizes header variants seen across payroll exports.
var columnRenames = map[string]string{
	"date_of_hiring": "hire_date",
	"job_title":      "job_titles",
}

// LoadCSV reads one baseline CSV into raw records. The first row is the
// header; empty cells become missing values so the normalizer treats them
// the same as absent JSON fields.
func LoadCSV(path string) ([]schema.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open csv")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged exports; short rows just miss columns

	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if renamed, ok := columnRenames[h]; ok {
			h = renamed
		}
		header[i] = h
	}

	var records []schema.RawRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read csv row")
		}
		rec := make(schema.RawRecord, len(header))
		for i, cell := range row {
			if i >= len(header) {
				break
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			rec[header[i]] = cell
		}
		records = append(records, rec)
	}
	return records, nil
}
