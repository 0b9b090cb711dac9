package config

import (
	"os"
	"path/filepath"
	"testing"
)

func chtmp(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})
	return tmpDir
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	tmpDir := chtmp(t)

	yamlContent := `
port: "8080"
env: "test"
database_path: "sessions.db"
analysis_workers: 2
`
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("expected Port=9090 (from env), got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("expected Env=production (from env), got %s", cfg.Env)
	}
	if cfg.DatabasePath != "sessions.db" {
		t.Errorf("expected DatabasePath=sessions.db (from yaml), got %s", cfg.DatabasePath)
	}
	if cfg.AnalysisWorkers != 2 {
		t.Errorf("expected AnalysisWorkers=2 (from yaml), got %d", cfg.AnalysisWorkers)
	}
	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}
}

func TestLoad_MissingYAMLUsesDefaults(t *testing.T) {
	chtmp(t)

	os.Unsetenv("PORT")
	os.Unsetenv("ENVIRONMENT")
	os.Unsetenv("DATABASE_PATH")
	os.Unsetenv("MAX_UPLOAD_BYTES")
	os.Unsetenv("ANALYSIS_WORKERS")

	cfg, err := Load("dev")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected default Port=8080, got %s", cfg.Port)
	}
	if cfg.DatabasePath != "tablescope.db" {
		t.Errorf("expected default DatabasePath=tablescope.db, got %s", cfg.DatabasePath)
	}
	if cfg.MaxUploadBytes != 16777216 {
		t.Errorf("expected default MaxUploadBytes=16777216, got %d", cfg.MaxUploadBytes)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("expected derived BaseURL=http://localhost:8080, got %s", cfg.BaseURL)
	}
}

func TestLoad_RejectsNonPositiveUploadLimit(t *testing.T) {
	chtmp(t)

	t.Setenv("MAX_UPLOAD_BYTES", "-1")
	if _, err := Load("dev"); err == nil {
		t.Fatal("expected error for negative upload limit")
	}
}
