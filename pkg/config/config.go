package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for tablescope-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (the session cookie key) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// Database configuration (SQLite)
	DatabasePath string `yaml:"database_path" env:"DATABASE_PATH" env-default:"tablescope.db"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES" env-default:"16777216"`

	// Analysis configuration
	AnalysisWorkers int `yaml:"analysis_workers" env:"ANALYSIS_WORKERS" env-default:"0"` // 0 means NumCPU

	// SessionKey signs the session cookie. Secret - not in YAML.
	// Generate with: openssl rand -base64 32
	SessionKey string `yaml:"-" env:"SESSION_KEY"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	// Load config from YAML file with environment variable overrides.
	// A missing config.yaml is fine; env defaults cover everything.
	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("max_upload_bytes must be positive, got %d", cfg.MaxUploadBytes)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}
