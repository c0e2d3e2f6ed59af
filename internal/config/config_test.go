package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "caseval.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Dedupe.SimilarityThreshold != 0.85 {
		t.Errorf("expected threshold 0.85, got %v", cfg.Dedupe.SimilarityThreshold)
	}
	if cfg.Committee.JudgeTimeout != 5*time.Minute {
		t.Errorf("expected 5m timeout, got %v", cfg.Committee.JudgeTimeout)
	}
	if cfg.CacheTTLSeconds != 0 {
		t.Error("expected cache disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoad_MissingExplicitPath(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing explicit path")
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
judge_timeout_seconds = 120
cache_ttl_seconds = 600

[dedupe]
similarity_threshold = 0.9

[committee]
max_judge_concurrency = 8
iteration_mode = true

[judge]
base_url = "https://api.example.com/v1"
api_key = "sk-test"

[judge.models]
strict = "model-strict-v1"

[[panel.judges]]
id = "strict"
display_name = "Strict Reviewer"

[[panel.judges]]
id = "lenient"

[panel.chairman]
id = "chair"

[server]
addr = ":9000"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Dedupe.SimilarityThreshold != 0.9 {
		t.Errorf("expected threshold 0.9, got %v", cfg.Dedupe.SimilarityThreshold)
	}
	// Unset keys keep their defaults.
	if cfg.Dedupe.MaxComparisonBatch != 200 {
		t.Errorf("expected default batch 200, got %d", cfg.Dedupe.MaxComparisonBatch)
	}
	if cfg.Committee.MaxJudgeConcurrency != 8 || !cfg.Committee.IterationMode {
		t.Errorf("unexpected committee config: %+v", cfg.Committee)
	}
	if cfg.Committee.JudgeTimeout != 2*time.Minute {
		t.Errorf("expected 2m timeout from seconds field, got %v", cfg.Committee.JudgeTimeout)
	}
	if len(cfg.Panel.Judges) != 2 || cfg.Panel.Chairman.ID != "chair" {
		t.Errorf("unexpected panel: %+v", cfg.Panel)
	}
	if cfg.Judge.Models["strict"] != "model-strict-v1" {
		t.Errorf("unexpected model map: %v", cfg.Judge.Models)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("unexpected server addr %q", cfg.Server.Addr)
	}
	if cfg.CacheTTLSeconds != 600 {
		t.Errorf("expected cache ttl 600, got %d", cfg.CacheTTLSeconds)
	}
}

func TestLoad_PanelRequiresEndpoint(t *testing.T) {
	path := writeConfig(t, `
[[panel.judges]]
id = "strict"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error: judges configured without a base_url")
	}
}

func TestLoad_DuplicateJudgeIDs(t *testing.T) {
	path := writeConfig(t, `
[judge]
base_url = "https://api.example.com/v1"

[[panel.judges]]
id = "dup"

[[panel.judges]]
id = "dup"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for duplicate judge ids")
	}
}

func TestLoad_InvalidToml(t *testing.T) {
	path := writeConfig(t, `not = [valid`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
