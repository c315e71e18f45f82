package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds payguard configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Model    ModelConfig    `yaml:"model"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Store    StoreConfig    `yaml:"store"`
	Training TrainingConfig `yaml:"training"`
	Audit    AuditConfig    `yaml:"audit"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`            // HTTP listen address, e.g. ":8090"
	AllowedOrigins  []string      `yaml:"allowed_origins"` // CORS origins for the dashboard
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"` // debug | info | warn | error
	File       string `yaml:"file"`  // empty = stderr only
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type ModelConfig struct {
	Path          string  `yaml:"path"` // fitted model artifact
	Trees         int     `yaml:"trees"`
	SubsampleSize int     `yaml:"subsample_size"`
	Contamination float64 `yaml:"contamination"` // expected outlier share in training data
	Seed          int64   `yaml:"seed"`
}

type ScoringConfig struct {
	HighThreshold   float64 `yaml:"high_threshold"`   // inverted score above this -> High
	MediumThreshold float64 `yaml:"medium_threshold"` // inverted score above this -> Medium
	VarianceCutoff  float64 `yaml:"variance_cutoff"`  // rule-based explainer cutoff
}

type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // sqlite database file
}

type TrainingConfig struct {
	BaselinePaths []string `yaml:"baseline_paths"` // CSV files with mostly-normal records
}

type AuditConfig struct {
	Sink string `yaml:"sink"` // stdout | file | off
	Path string `yaml:"path"` // used when sink == file
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, return default config
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8090"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:5174"}
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.IdleTimeout <= 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = 100
	}
	if cfg.Logging.MaxBackups <= 0 {
		cfg.Logging.MaxBackups = 5
	}
	if cfg.Logging.MaxAgeDays <= 0 {
		cfg.Logging.MaxAgeDays = 30
	}

	if cfg.Model.Path == "" {
		cfg.Model.Path = "model/isolation_forest.json"
	}
	if cfg.Model.Trees <= 0 {
		cfg.Model.Trees = 100
	}
	if cfg.Model.SubsampleSize <= 0 {
		cfg.Model.SubsampleSize = 256
	}
	if cfg.Model.Contamination <= 0 {
		cfg.Model.Contamination = 0.05
	}
	if cfg.Model.Seed == 0 {
		cfg.Model.Seed = 42
	}

	if cfg.Scoring.HighThreshold == 0 {
		cfg.Scoring.HighThreshold = 0.05
	}
	// MediumThreshold stays 0: any positive inverted score is at least Medium.
	if cfg.Scoring.VarianceCutoff <= 0 {
		cfg.Scoring.VarianceCutoff = 0.5
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = "payguard.db"
	}

	if cfg.Audit.Sink == "" {
		cfg.Audit.Sink = "stdout"
	}
	if cfg.Audit.Sink == "file" && cfg.Audit.Path == "" {
		cfg.Audit.Path = "logs/audit.jsonl"
	}
}
