package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level)
	}

	if strings.TrimSpace(cfg.Model.Path) == "" {
		return errors.New("model.path must be set")
	}
	if cfg.Model.Trees <= 0 {
		return fmt.Errorf("model.trees must be positive, got %d", cfg.Model.Trees)
	}
	if cfg.Model.SubsampleSize <= 1 {
		return fmt.Errorf("model.subsample_size must be greater than 1, got %d", cfg.Model.SubsampleSize)
	}
	if cfg.Model.Contamination <= 0 || cfg.Model.Contamination >= 0.5 {
		return fmt.Errorf("model.contamination must be in (0, 0.5), got %g", cfg.Model.Contamination)
	}

	if cfg.Scoring.HighThreshold < cfg.Scoring.MediumThreshold {
		return fmt.Errorf("scoring.high_threshold (%g) must not be below scoring.medium_threshold (%g)",
			cfg.Scoring.HighThreshold, cfg.Scoring.MediumThreshold)
	}

	if cfg.Store.Enabled && strings.TrimSpace(cfg.Store.Path) == "" {
		return errors.New("store.path must be set when store.enabled is true")
	}

	switch cfg.Audit.Sink {
	case "stdout", "off":
	case "file":
		if strings.TrimSpace(cfg.Audit.Path) == "" {
			return errors.New("audit.path must be set when audit.sink is file")
		}
	default:
		return fmt.Errorf("audit.sink %q is not one of stdout, file, off", cfg.Audit.Sink)
	}

	return nil
}
