// Package server is the JSON HTTP shell over the scoring pipeline. It
// accepts already-parsed record batches, runs them through normalization,
// feature derivation, scoring and explanation, and reports results in the
// {status, data|error} envelope the dashboard consumes.
package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/payguard-ai/payguard/internal/audit"
	"github.com/payguard-ai/payguard/internal/config"
	"github.com/payguard-ai/payguard/internal/explain"
	"github.com/payguard-ai/payguard/internal/report"
	"github.com/payguard-ai/payguard/internal/scoring"
	"github.com/payguard-ai/payguard/internal/trainer"
)

// Server wires the HTTP handlers to the scoring pipeline.
type Server struct {
	cfg        *config.Config
	logger     *zap.Logger
	models     *scoring.Holder
	scorer     *scoring.Scorer
	trainer    *trainer.Trainer
	store      *report.Store // nil when persistence is disabled
	audit      audit.Emitter
	thresholds scoring.Thresholds
	explainer  explain.Generator

	httpServer *http.Server
	handler    http.Handler

	// Serializes retrains; scoring requests are never blocked by this.
	retrainMu sync.Mutex
}

// New creates a server with all routes registered.
func New(cfg *config.Config, logger *zap.Logger, models *scoring.Holder, tr *trainer.Trainer, store *report.Store, emitter audit.Emitter) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = audit.NewNop()
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		models:  models,
		scorer:  scoring.NewScorer(models),
		trainer: tr,
		store:   store,
		audit:   emitter,
		thresholds: scoring.Thresholds{
			High:   cfg.Scoring.HighThreshold,
			Medium: cfg.Scoring.MediumThreshold,
		},
		explainer: explain.New(cfg.Scoring.VarianceCutoff),
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost)
	api.HandleFunc("/retrain", s.handleRetrain).Methods(http.MethodPost)
	api.HandleFunc("/reports", s.handleListReports).Methods(http.MethodGet)
	api.HandleFunc("/reports/{id}", s.handleGetReport).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	s.handler = c.Handler(r)

	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	s.logger.Info("payguard listening", zap.String("addr", s.cfg.Server.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
