package serve

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shahbajlive/caseval/internal/committee"
	"github.com/shahbajlive/caseval/internal/history"
	"github.com/shahbajlive/caseval/internal/testcase"
)

// detectRequest is the body of POST /api/v1/detect.
type detectRequest struct {
	TestCases []testcase.TestCase `json:"test_cases"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	report := s.engine.Detect(testcase.NewCollection(req.TestCases))
	writeJSON(w, http.StatusOK, report)
}

// evaluateRequest is the body of POST /api/v1/evaluate.
type evaluateRequest struct {
	Label       string              `json:"label,omitempty"`
	TestCases   []testcase.TestCase `json:"test_cases"`
	GoldenCases []testcase.TestCase `json:"golden_cases,omitempty"`

	// SkipDetection omits the duplicate analysis from the judge context.
	SkipDetection bool `json:"skip_detection,omitempty"`

	// Iteration disables debate for this run only.
	Iteration bool `json:"iteration,omitempty"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if s.client == nil || len(s.cfg.Panel.Judges) == 0 {
		writeError(w, r, http.StatusServiceUnavailable, ErrCodeNoPanel, "no judge panel configured")
		return
	}

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if len(req.TestCases) == 0 {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "test_cases is required")
		return
	}

	task := s.tasks.create()
	s.hub.publish(Event{Type: "task", TaskID: task.ID, Status: string(TaskPending)})

	go s.runEvaluation(task.ID, req)

	writeJSON(w, http.StatusAccepted, task)
}

// runEvaluation executes the pipeline for one async task. It runs detached
// from the request context; shutting the process down abandons the task.
func (s *Server) runEvaluation(taskID string, req evaluateRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	s.tasks.update(taskID, func(t *Task) { t.Status = TaskRunning })
	s.hub.publish(Event{Type: "task", TaskID: taskID, Status: string(TaskRunning)})

	collection := testcase.NewCollection(req.TestCases)

	input := committee.Input{AICases: collection.Render()}
	if len(req.GoldenCases) > 0 {
		input.GoldenCases = testcase.NewCollection(req.GoldenCases).Render()
	}

	task, _ := s.tasks.get(taskID)
	if !req.SkipDetection {
		report := s.engine.Detect(collection)
		input.DuplicateSummary = report.Summary("Submitted cases")
		task.Report = report
	}

	cfg := s.cfg.Committee
	if req.Iteration {
		cfg.IterationMode = true
	}

	result, err := committee.Evaluate(ctx, cfg, s.cfg.Panel, s.client, input)
	if err != nil {
		s.tasks.update(taskID, func(t *Task) {
			t.Status = TaskFailed
			t.Error = err.Error()
			t.Report = task.Report
		})
		s.hub.publish(Event{Type: "task", TaskID: taskID, Status: string(TaskFailed), Message: err.Error()})
		return
	}

	var runID int64
	if s.store != nil {
		runID, err = s.store.SaveRun(ctx, history.Run{
			Label:  req.Label,
			Result: result,
			Report: task.Report,
		})
		if err != nil {
			slog.Warn("failed to persist run", "task", taskID, "error", err)
		}
	}

	s.tasks.update(taskID, func(t *Task) {
		t.Status = TaskCompleted
		t.Result = result
		t.Report = task.Report
		t.RunID = runID
	})
	s.hub.publish(Event{Type: "task", TaskID: taskID, Status: string(TaskCompleted)})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, ok := s.tasks.get(id)
	if !ok {
		writeError(w, r, http.StatusNotFound, ErrCodeNotFound, "unknown task id")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []history.Run{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, r, http.StatusNotFound, ErrCodeNotFound, "history disabled")
		return
	}
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid run id")
		return
	}
	run, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, ErrCodeNotFound, "unknown run id")
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}
