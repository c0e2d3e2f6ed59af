package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCases(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cases.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

const duplicateCases = `[
  {"id": "c1", "title": "Login", "steps": ["open page", "submit"]},
  {"id": "c2", "title": "Login", "steps": ["different", "steps"]},
  {"id": "c3", "title": "Export", "steps": ["open dashboard", "click export"]}
]`

func TestDetectCommand_Text(t *testing.T) {
	path := writeCases(t, duplicateCases)
	out, err := execute(t, "detect", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Duplicate Groups: 1") {
		t.Errorf("expected group count in output, got:\n%s", out)
	}
}

func TestDetectCommand_JSON(t *testing.T) {
	path := writeCases(t, duplicateCases)
	out, err := execute(t, "detect", path, "--format=json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var report struct {
		TotalCases     int `json:"total_cases"`
		DuplicateCount int `json:"duplicate_count"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if report.TotalCases != 3 || report.DuplicateCount != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestDetectCommand_MissingFile(t *testing.T) {
	if _, err := execute(t, "detect", filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDetectCommand_BadFormat(t *testing.T) {
	path := writeCases(t, duplicateCases)
	if _, err := execute(t, "detect", path, "--format=xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestEvaluateCommand_DryRun(t *testing.T) {
	path := writeCases(t, duplicateCases)
	out, err := execute(t, "evaluate", path, "--dry-run")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Overall Score: 3.0") {
		t.Errorf("expected scripted score in output, got:\n%s", out)
	}
	if !strings.Contains(out, "Duplicate Analysis") {
		t.Errorf("expected duplicate section, got:\n%s", out)
	}
}

func TestEvaluateCommand_DryRunJSON(t *testing.T) {
	path := writeCases(t, duplicateCases)
	out, err := execute(t, "evaluate", path, "--dry-run", "--no-detect", "--format=json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var payload struct {
		Result struct {
			OverallScore float64 `json:"overall_score"`
		} `json:"result"`
		Report any `json:"duplicate_report"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if payload.Result.OverallScore != 3.0 {
		t.Errorf("expected 3.0, got %v", payload.Result.OverallScore)
	}
	if payload.Report != nil {
		t.Error("expected no duplicate report with --no-detect")
	}
}

func TestEvaluateCommand_NoPanel(t *testing.T) {
	path := writeCases(t, duplicateCases)
	if _, err := execute(t, "evaluate", path); err == nil {
		t.Fatal("expected error without a panel or --dry-run")
	}
}

func TestEvaluateCommand_EmptyCollection(t *testing.T) {
	path := writeCases(t, `[]`)
	if _, err := execute(t, "evaluate", path, "--dry-run"); err == nil {
		t.Fatal("expected error for empty collection")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "caseval") {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestHistoryCommand_NotConfigured(t *testing.T) {
	if _, err := execute(t, "history", "list"); err == nil {
		t.Fatal("expected error when history_path is not configured")
	}
}
