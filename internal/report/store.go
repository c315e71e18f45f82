// Package report persists per-analysis result batches so past runs can be
// reviewed after the fact. Persistence is auxiliary to the scoring
// pipeline: a store failure is reported, never allowed to fail a
// completed analysis.
package report

import (
	"database/sql"
	"embed"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

//go:embed sql/*
var ddl embed.FS

// Batch summarizes one analysis run.
type Batch struct {
	ID             string     `json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	TotalRecords   int        `json:"total_records"`
	Accepted       int        `json:"accepted"`
	Rejected       int        `json:"rejected"`
	Flagged        int        `json:"flagged"`
	HighRisk       int        `json:"high_risk"`
	MediumRisk     int        `json:"medium_risk"`
	ModelTrainedAt *time.Time `json:"model_trained_at,omitempty"`
	Records        []Record   `json:"records,omitempty"`
}

// Record is one stored result row.
type Record struct {
	EmployeeID     string  `json:"employee_id"`
	FullName       string  `json:"full_name"`
	Department     string  `json:"department"`
	Salary         float64 `json:"salary"`
	AttendanceDays float64 `json:"attendance_days"`
	IsGhost        bool    `json:"is_ghost"`
	RiskLevel      string  `json:"risk_level"`
	Score          float64 `json:"score"`
	Explanation    string  `json:"explanation"`
}

// Store is the sqlite-backed report store.
type Store struct {
	db *sql.DB
}

// Open opens (and if necessary creates) the report database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path not specified")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open report database %s", path)
	}

	b, err := ddl.ReadFile("sql/ddl.sql")
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "read report schema")
	}
	if _, err := db.Exec(string(b)); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "create report schema in %s", path)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveBatch persists a batch and its records in one transaction and
// returns the generated batch id.
func (s *Store) SaveBatch(b Batch) (string, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", errors.Wrap(err, "begin report transaction")
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO report_batch
		(id, created_at, total_records, accepted, rejected, flagged, high_risk, medium_risk, model_trained_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.CreatedAt, b.TotalRecords, b.Accepted, b.Rejected, b.Flagged, b.HighRisk, b.MediumRisk, b.ModelTrainedAt)
	if err != nil {
		return "", errors.Wrap(err, "insert report batch")
	}

	stmt, err := tx.Prepare(`INSERT INTO report_record
		(batch_id, position, employee_id, full_name, department, salary, attendance_days, is_ghost, risk_level, score, explanation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", errors.Wrap(err, "prepare record insert")
	}
	defer stmt.Close()

	for i, r := range b.Records {
		if _, err := stmt.Exec(b.ID, i, r.EmployeeID, r.FullName, r.Department, r.Salary,
			r.AttendanceDays, r.IsGhost, r.RiskLevel, r.Score, r.Explanation); err != nil {
			return "", errors.Wrapf(err, "insert report record %d", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(err, "commit report batch")
	}
	return b.ID, nil
}

// ListBatches returns batch summaries, most recent first, without records.
func (s *Store) ListBatches(limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT id, created_at, total_records, accepted, rejected, flagged, high_risk, medium_risk, model_trained_at
		FROM report_batch ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query report batches")
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.CreatedAt, &b.TotalRecords, &b.Accepted, &b.Rejected,
			&b.Flagged, &b.HighRisk, &b.MediumRisk, &b.ModelTrainedAt); err != nil {
			return nil, errors.Wrap(err, "scan report batch")
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ErrBatchNotFound is returned by GetBatch for unknown ids.
var ErrBatchNotFound = errors.New("report batch not found")

// GetBatch returns one batch with its records.
func (s *Store) GetBatch(id string) (*Batch, error) {
	var b Batch
	err := s.db.QueryRow(`SELECT id, created_at, total_records, accepted, rejected, flagged, high_risk, medium_risk, model_trained_at
		FROM report_batch WHERE id = ?`, id).
		Scan(&b.ID, &b.CreatedAt, &b.TotalRecords, &b.Accepted, &b.Rejected, &b.Flagged, &b.HighRisk, &b.MediumRisk, &b.ModelTrainedAt)
	if err == sql.ErrNoRows {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "query report batch %s", id)
	}

	rows, err := s.db.Query(`SELECT employee_id, full_name, department, salary, attendance_days, is_ghost, risk_level, score, explanation
		FROM report_record WHERE batch_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "query records for batch %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.EmployeeID, &r.FullName, &r.Department, &r.Salary,
			&r.AttendanceDays, &r.IsGhost, &r.RiskLevel, &r.Score, &r.Explanation); err != nil {
			return nil, errors.Wrap(err, "scan report record")
		}
		b.Records = append(b.Records, r)
	}
	return &b, rows.Err()
}
