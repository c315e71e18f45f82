package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/payguard-ai/payguard/internal/audit"
	"github.com/payguard-ai/payguard/internal/feature"
	"github.com/payguard-ai/payguard/internal/report"
	"github.com/payguard-ai/payguard/internal/schema"
	"github.com/payguard-ai/payguard/internal/scoring"
)

// defaultAttendanceDays is the display fallback when no attendance figure
// was merged for a record.
const defaultAttendanceDays = 20.0

type analyzeRequest struct {
	Records    []schema.RawRecord `json:"records"`
	Attendance []schema.RawRecord `json:"attendance,omitempty"`
}

// ResultRecord is one scored row as returned to clients.
type ResultRecord struct {
	ID             string            `json:"id"`
	EmployeeID     string            `json:"employeeId"`
	FullName       string            `json:"fullName"`
	Department     string            `json:"department"`
	Salary         float64           `json:"salary"`
	AttendanceDays float64           `json:"attendanceDays"`
	IsGhost        bool              `json:"isGhost"`
	RiskLevel      scoring.RiskLevel `json:"riskLevel"`
	Score          float64           `json:"score"` // display-normalized, [0,1] within the batch
	Explanation    string            `json:"explanation"`
}

type analyzeResponse struct {
	Status   string            `json:"status"`
	Data     []ResultRecord    `json:"data"`
	Errors   []schema.RowError `json:"errors,omitempty"`
	ReportID string            `json:"reportId,omitempty"`
}

type retrainRequest struct {
	Records []schema.RawRecord `json:"records"`
}

type retrainResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Swapped bool   `json:"swapped"`
}

type errorBody struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Status: "error", Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	model := s.models.Current()
	body := map[string]any{"status": "ok", "model": "missing"}
	if model != nil {
		body["model"] = "loaded"
		body["trained_at"] = model.TrainedAt
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "records must not be empty")
		return
	}

	raw := req.Records
	if len(req.Attendance) > 0 {
		merged, err := schema.MergeAttendance(raw, req.Attendance)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		raw = merged
	}

	records, rowErrs, err := schema.Normalize(raw)
	if err != nil {
		// Zero valid rows is a batch-level failure, never an empty success.
		writeError(w, http.StatusBadRequest, err.Error())
		s.emitAudit(r, audit.KindAnalyze, "", len(raw), 0, len(rowErrs), 0, nil, nil, started, err)
		return
	}

	vectors := feature.Derive(records)
	scored, err := s.scorer.Score(vectors)
	if err != nil {
		if errors.Is(err, scoring.ErrModelUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "anomaly model not loaded; train a model first")
		} else {
			s.logger.Error("scoring failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "scoring failed: "+err.Error())
		}
		s.emitAudit(r, audit.KindAnalyze, "", len(raw), len(records), len(rowErrs), 0, nil, nil, started, err)
		return
	}

	display := scoring.NormalizeDisplay(scored.Scores)

	results := make([]ResultRecord, len(records))
	riskCounts := map[string]int{}
	flagged := 0
	for i, rec := range records {
		risk := scoring.Classify(scored.Scores[i], s.thresholds)
		riskCounts[string(risk)]++
		if scored.Flags[i] {
			flagged++
		}

		days := defaultAttendanceDays
		if rec.DaysPresent != nil {
			days = *rec.DaysPresent
		}

		results[i] = ResultRecord{
			ID:             rec.EmployeeID,
			EmployeeID:     rec.EmployeeID,
			FullName:       rec.Name,
			Department:     rec.Department,
			Salary:         rec.Salary,
			AttendanceDays: days,
			IsGhost:        scored.Flags[i],
			RiskLevel:      risk,
			Score:          display[i],
			Explanation:    s.explainer.Explain(scored.Flags[i], vectors[i], rec.DaysPresent, scored.Contributions[i]),
		}
	}

	reportID := s.persistBatch(raw, results, rowErrs, riskCounts, flagged, scored.ModelTrainedAt)
	s.emitAudit(r, audit.KindAnalyze, reportID, len(raw), len(records), len(rowErrs), flagged, riskCounts, &scored.ModelTrainedAt, started, nil)

	s.logger.Info("batch analyzed",
		zap.Int("records", len(raw)),
		zap.Int("accepted", len(records)),
		zap.Int("rejected", len(rowErrs)),
		zap.Int("flagged", flagged),
		zap.Duration("took", time.Since(started)))

	writeJSON(w, http.StatusOK, analyzeResponse{
		Status:   "success",
		Data:     results,
		Errors:   rowErrs,
		ReportID: reportID,
	})
}

func (s *Server) handleRetrain(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req retrainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.retrainMu.Lock()
	defer s.retrainMu.Unlock()

	model, err := s.trainer.Train(req.Records)
	if err != nil {
		// The previous model keeps serving; nothing was swapped.
		s.logger.Error("retraining failed", zap.Error(err))
		s.emitAudit(r, audit.KindRetrain, "", len(req.Records), 0, 0, 0, nil, nil, started, err)
		writeError(w, http.StatusInternalServerError, "retraining failed: "+err.Error())
		return
	}

	s.models.Swap(model)
	s.emitAudit(r, audit.KindRetrain, "", len(req.Records), model.TrainedOn, 0, 0, nil, &model.TrainedAt, started, nil)
	s.logger.Info("model retrained and swapped",
		zap.Int("trained_on", model.TrainedOn),
		zap.Duration("took", time.Since(started)))

	writeJSON(w, http.StatusOK, retrainResponse{
		Status:  "success",
		Message: "model retrained and reloaded successfully",
		Swapped: true,
	})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "report store is disabled")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	batches, err := s.store.ListBatches(limit)
	if err != nil {
		s.logger.Error("list reports failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": batches})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "report store is disabled")
		return
	}
	id := mux.Vars(r)["id"]
	batch, err := s.store.GetBatch(id)
	if err != nil {
		if errors.Is(err, report.ErrBatchNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		s.logger.Error("get report failed", zap.Error(err), zap.String("id", id))
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": batch})
}

// persistBatch stores the analysis outcome when a store is configured. A
// storage failure is logged, not surfaced as a request failure: the
// verdicts were already computed.
func (s *Server) persistBatch(raw []schema.RawRecord, results []ResultRecord, rowErrs []schema.RowError, riskCounts map[string]int, flagged int, trainedAt time.Time) string {
	if s.store == nil {
		return ""
	}

	records := make([]report.Record, len(results))
	for i, res := range results {
		records[i] = report.Record{
			EmployeeID:     res.EmployeeID,
			FullName:       res.FullName,
			Department:     res.Department,
			Salary:         res.Salary,
			AttendanceDays: res.AttendanceDays,
			IsGhost:        res.IsGhost,
			RiskLevel:      string(res.RiskLevel),
			Score:          res.Score,
			Explanation:    res.Explanation,
		}
	}

	id, err := s.store.SaveBatch(report.Batch{
		TotalRecords:   len(raw),
		Accepted:       len(results),
		Rejected:       len(rowErrs),
		Flagged:        flagged,
		HighRisk:       riskCounts[string(scoring.RiskHigh)],
		MediumRisk:     riskCounts[string(scoring.RiskMedium)],
		ModelTrainedAt: &trainedAt,
		Records:        records,
	})
	if err != nil {
		s.logger.Error("failed to persist report batch", zap.Error(err))
		return ""
	}
	return id
}

func (s *Server) emitAudit(r *http.Request, kind audit.Kind, batchID string, total, accepted, rejected, flagged int, riskCounts map[string]int, trainedAt *time.Time, started time.Time, opErr error) {
	ev := &audit.Event{
		Timestamp:      time.Now().UTC(),
		Kind:           kind,
		BatchID:        batchID,
		TotalRecords:   total,
		Accepted:       accepted,
		Rejected:       rejected,
		Flagged:        flagged,
		RiskCounts:     riskCounts,
		ModelTrainedAt: trainedAt,
		DurationMs:     float64(time.Since(started).Microseconds()) / 1000.0,
		Outcome:        "success",
	}
	if opErr != nil {
		ev.Outcome = "error"
		ev.Error = opErr.Error()
	}
	s.audit.Emit(r.Context(), ev)
}
