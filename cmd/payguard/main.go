package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/payguard-ai/payguard/internal/audit"
	"github.com/payguard-ai/payguard/internal/config"
	"github.com/payguard-ai/payguard/internal/forest"
	"github.com/payguard-ai/payguard/internal/logging"
	"github.com/payguard-ai/payguard/internal/report"
	"github.com/payguard-ai/payguard/internal/scoring"
	"github.com/payguard-ai/payguard/internal/server"
	"github.com/payguard-ai/payguard/internal/trainer"
)

func main() {
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath := flag.String("config", "payguard.yaml", "Path to PayGuard config file")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *addrFlag != "" {
		cfg.Server.Addr = *addrFlag
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to init logging: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	// A missing artifact is not fatal: the service comes up and answers
	// 503 on analyze until a model is trained.
	model, err := forest.Load(cfg.Model.Path)
	switch {
	case err == nil:
		logger.Info("model loaded",
			zap.String("path", cfg.Model.Path),
			zap.Time("trained_at", model.TrainedAt),
			zap.Int("trained_on", model.TrainedOn))
	case errors.Is(err, forest.ErrArtifactNotFound):
		logger.Warn("no model artifact found, analyze is unavailable until retrain",
			zap.String("path", cfg.Model.Path))
	default:
		logger.Fatal("failed to load model artifact", zap.Error(err))
	}
	models := scoring.NewHolder(model)

	tr := trainer.New(cfg.Model, cfg.Training.BaselinePaths, logger)

	var store *report.Store
	if cfg.Store.Enabled {
		store, err = report.Open(cfg.Store.Path)
		if err != nil {
			logger.Fatal("failed to open report store", zap.Error(err))
		}
		defer store.Close()
	}

	var emitter audit.Emitter
	switch cfg.Audit.Sink {
	case "file":
		fs := audit.NewFile(cfg.Audit.Path)
		defer fs.Close()
		emitter = fs
	case "off":
		emitter = audit.NewNop()
	default:
		emitter = audit.NewStdout()
	}

	srv := server.New(cfg, logger, models, tr, store, emitter)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}
}
