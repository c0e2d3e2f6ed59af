package serve

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shahbajlive/caseval/internal/committee"
	"github.com/shahbajlive/caseval/internal/config"
	"github.com/shahbajlive/caseval/internal/history"
	"github.com/shahbajlive/caseval/internal/judge"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Panel = committee.Panel{
		Judges: []committee.JudgeProfile{{ID: "judge-a"}, {ID: "judge-b"}},
	}
	return cfg
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func get(handler http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := New(config.Default(), nil, nil)
	rec := get(s.Handler(), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestDetectEndpoint(t *testing.T) {
	s := New(config.Default(), nil, nil)

	rec := postJSON(t, s.Handler(), "/api/v1/detect", map[string]any{
		"test_cases": []map[string]any{
			{"id": "c1", "title": "Login", "steps": []string{"open", "submit"}},
			{"id": "c2", "title": "Login", "steps": []string{"other", "steps"}},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var report struct {
		TotalCases     int `json:"total_cases"`
		DuplicateCount int `json:"duplicate_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.TotalCases != 2 || report.DuplicateCount != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestDetectEndpoint_BadBody(t *testing.T) {
	s := New(config.Default(), nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/detect", bytes.NewReader([]byte("nope")))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestEvaluateEndpoint_NoPanel(t *testing.T) {
	s := New(config.Default(), nil, nil)
	rec := postJSON(t, s.Handler(), "/api/v1/evaluate", map[string]any{
		"test_cases": []map[string]any{{"id": "c1", "title": "T"}},
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func waitForTask(t *testing.T, handler http.Handler, id string) Task {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := get(handler, "/api/v1/tasks/"+id)
		if rec.Code != http.StatusOK {
			t.Fatalf("task poll returned %d", rec.Code)
		}
		var task Task
		if err := json.Unmarshal(rec.Body.Bytes(), &task); err != nil {
			t.Fatal(err)
		}
		if task.Status == TaskCompleted || task.Status == TaskFailed {
			return task
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("task did not finish in time")
	return Task{}
}

func TestEvaluateEndpoint_AsyncFlow(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	s := New(testConfig(), judge.NewScriptedClient(4.0), store)

	rec := postJSON(t, s.Handler(), "/api/v1/evaluate", map[string]any{
		"label": "demo",
		"test_cases": []map[string]any{
			{"id": "c1", "title": "Login", "steps": []string{"open", "submit"}},
		},
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var accepted Task
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
		t.Fatal(err)
	}

	task := waitForTask(t, s.Handler(), accepted.ID)
	if task.Status != TaskCompleted {
		t.Fatalf("expected completed, got %s (%s)", task.Status, task.Error)
	}
	if task.Result == nil || task.Result.OverallScore != 4.0 {
		t.Errorf("unexpected result: %+v", task.Result)
	}
	if task.Report == nil {
		t.Error("expected detection report attached")
	}
	if task.RunID == 0 {
		t.Error("expected persisted run id")
	}

	// The run is retrievable from history.
	runRec := get(s.Handler(), "/api/v1/runs")
	if runRec.Code != http.StatusOK {
		t.Fatalf("runs list returned %d", runRec.Code)
	}
	var runs []history.Run
	if err := json.Unmarshal(runRec.Body.Bytes(), &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Label != "demo" {
		t.Errorf("unexpected runs: %+v", runs)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	s := New(config.Default(), nil, nil)
	rec := get(s.Handler(), "/api/v1/tasks/deadbeef")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListRuns_HistoryDisabled(t *testing.T) {
	s := New(config.Default(), nil, nil)
	rec := get(s.Handler(), "/api/v1/runs")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("expected empty list, got %q", body)
	}
}

func TestGetRun_HistoryDisabled(t *testing.T) {
	s := New(config.Default(), nil, nil)
	rec := get(s.Handler(), "/api/v1/runs/1")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
