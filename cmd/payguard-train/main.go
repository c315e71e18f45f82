package main

import (
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/payguard-ai/payguard/internal/config"
	"github.com/payguard-ai/payguard/internal/logging"
	"github.com/payguard-ai/payguard/internal/schema"
	"github.com/payguard-ai/payguard/internal/trainer"
)

// payguard-train fits the isolation forest from the configured baseline
// CSVs, optionally blended with an extra CSV, and writes the artifact
// the service loads at startup.
func main() {
	configPath := flag.String("config", "payguard.yaml", "Path to PayGuard config file")
	dataPath := flag.String("data", "", "Optional extra CSV appended to the baseline data")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to init logging: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	var extra []schema.RawRecord
	if *dataPath != "" {
		extra, err = trainer.LoadCSV(*dataPath)
		if err != nil {
			logger.Fatal("failed to load extra data", zap.String("path", *dataPath), zap.Error(err))
		}
		logger.Info("extra data loaded", zap.String("path", *dataPath), zap.Int("records", len(extra)))
	}

	tr := trainer.New(cfg.Model, cfg.Training.BaselinePaths, logger)
	model, err := tr.Train(extra)
	if err != nil {
		logger.Fatal("training failed", zap.Error(err))
	}

	logger.Info("model trained and saved",
		zap.String("path", cfg.Model.Path),
		zap.Int("trained_on", model.TrainedOn),
		zap.Time("trained_at", model.TrainedAt))
}
