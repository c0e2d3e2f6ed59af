// Package serve exposes the evaluation pipeline over a REST API: synchronous
// duplicate detection, asynchronous committee evaluation with task polling,
// persisted run history, and a websocket event feed.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shahbajlive/caseval/internal/committee"
	"github.com/shahbajlive/caseval/internal/config"
	"github.com/shahbajlive/caseval/internal/dedupe"
	"github.com/shahbajlive/caseval/internal/history"
)

// Error codes returned in the JSON error envelope.
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeNoPanel       = "NO_PANEL"
)

// Server hosts the API. Construct with New, serve with Run.
type Server struct {
	cfg    config.Config
	engine *dedupe.Engine
	client committee.JudgeClient
	store  *history.Store
	tasks  *taskManager
	hub    *eventHub
	router chi.Router
}

// New builds a server. client may be nil when no judge panel is configured;
// evaluation endpoints then return NO_PANEL. store may be nil to disable
// history.
func New(cfg config.Config, client committee.JudgeClient, store *history.Store) *Server {
	s := &Server{
		cfg:    cfg,
		engine: dedupe.NewEngine(cfg.Dedupe),
		client: client,
		store:  store,
		tasks:  newTaskManager(),
		hub:    newEventHub(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/detect", s.handleDetect)
		r.Post("/evaluate", s.handleEvaluate)
		r.Get("/tasks/{id}", s.handleGetTask)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/events", s.hub.handleWS)
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api server listening", "addr", s.cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.engine.Close()
		s.hub.close()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		s.engine.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      code,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseID(r *http.Request) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(chi.URLParam(r, "id"), "%d", &id); err != nil {
		return 0, err
	}
	return id, nil
}
