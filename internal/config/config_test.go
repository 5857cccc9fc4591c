package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func TestLoadFromFile(t *testing.T) {
	dir := writeConfig(t, `
grading:
  pass_threshold: 70
exam:
  default_count: 5
  max_count: 50
  consumed_retention: 2h
redis:
  addr: redis://cache:6379
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Grading.PassThreshold != 70 {
		t.Errorf("expected pass threshold 70, got %d", cfg.Grading.PassThreshold)
	}
	if cfg.Exam.DefaultCount != 5 || cfg.Exam.MaxCount != 50 {
		t.Errorf("unexpected exam counts %+v", cfg.Exam)
	}
	if cfg.Exam.ConsumedRetention != 2*time.Hour {
		t.Errorf("expected 2h retention, got %v", cfg.Exam.ConsumedRetention)
	}
	if cfg.Redis.Addr != "cache:6379" {
		t.Errorf("expected redis:// prefix stripped, got %q", cfg.Redis.Addr)
	}
	if cfg.Mongo.Database != "examforge" {
		t.Errorf("expected default database, got %q", cfg.Mongo.Database)
	}
}

func TestLoadRequiresPassThreshold(t *testing.T) {
	dir := writeConfig(t, "exam:\n  default_count: 5\n")

	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "pass_threshold") {
		t.Fatalf("expected missing pass threshold error, got %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := writeConfig(t, "grading:\n  pass_threshold: 50\n")
	t.Setenv("PASS_THRESHOLD", "80")
	t.Setenv("MONGO_URI", "mongodb://db:27017")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Grading.PassThreshold != 80 {
		t.Errorf("expected env override 80, got %d", cfg.Grading.PassThreshold)
	}
	if cfg.Mongo.URI != "mongodb://db:27017" {
		t.Errorf("expected MONGO_URI override, got %q", cfg.Mongo.URI)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Grading: GradingConfig{PassThreshold: 60},
		Exam:    ExamConfig{DefaultCount: 10, MaxCount: 20},
	}

	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"threshold above 100", func(c *Config) { c.Grading.PassThreshold = 101 }, true},
		{"negative threshold", func(c *Config) { c.Grading.PassThreshold = -1 }, true},
		{"zero default count", func(c *Config) { c.Exam.DefaultCount = 0 }, true},
		{"max below default", func(c *Config) { c.Exam.MaxCount = 5 }, true},
		{"short secret in release", func(c *Config) { c.Server.Mode = "release"; c.JWT.Secret = "short" }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
