// Package audit emits one structured event per analysis or retrain run, so
// operators have an append-only trail of what was scored and what the
// model did, independent of the application log.
package audit

import (
	"context"
	"time"
)

// Kind distinguishes the audited operations.
type Kind string

const (
	KindAnalyze Kind = "analyze"
	KindRetrain Kind = "retrain"
)

// Event is the canonical audit payload for one run.
type Event struct {
	Timestamp      time.Time      `json:"timestamp"`
	Kind           Kind           `json:"kind"`
	BatchID        string         `json:"batch_id,omitempty"`
	TotalRecords   int            `json:"total_records"`
	Accepted       int            `json:"accepted"`
	Rejected       int            `json:"rejected"`
	Flagged        int            `json:"flagged"`
	RiskCounts     map[string]int `json:"risk_counts,omitempty"`
	ModelTrainedAt *time.Time     `json:"model_trained_at,omitempty"`
	DurationMs     float64        `json:"duration_ms"`
	Outcome        string         `json:"outcome"` // success | error
	Error          string         `json:"error,omitempty"`
}

// Emitter delivers audit events to a sink.
type Emitter interface {
	Emit(ctx context.Context, ev *Event)
}
