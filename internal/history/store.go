// Package history persists evaluation runs in a local sqlite database so
// score trends survive process restarts and can be compared across
// iterations.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/shahbajlive/caseval/internal/committee"
	"github.com/shahbajlive/caseval/internal/dedupe"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("run not found")

// Run is one persisted evaluation.
type Run struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Label is the caller-supplied name for the run, e.g. the input file.
	Label string `json:"label,omitempty"`

	OverallScore float64             `json:"overall_score"`
	Framework    committee.Framework `json:"framework"`

	// Result and Report carry the full payloads; either may be nil for runs
	// that only performed one half of the pipeline.
	Result *committee.EvaluationResult `json:"result,omitempty"`
	Report *dedupe.DuplicateReport     `json:"report,omitempty"`
}

// Store wraps the sqlite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    label         TEXT NOT NULL DEFAULT '',
    overall_score REAL NOT NULL DEFAULT 0,
    framework     TEXT NOT NULL DEFAULT '',
    result_json   TEXT,
    report_json   TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`)
	if err != nil {
		return fmt.Errorf("migrate history db: %w", err)
	}
	return nil
}

// SaveRun persists a run and returns its id.
func (s *Store) SaveRun(ctx context.Context, run Run) (int64, error) {
	var resultJSON, reportJSON sql.NullString
	if run.Result != nil {
		data, err := json.Marshal(run.Result)
		if err != nil {
			return 0, fmt.Errorf("encode result: %w", err)
		}
		resultJSON = sql.NullString{String: string(data), Valid: true}
		run.OverallScore = run.Result.OverallScore
		run.Framework = run.Result.Framework
	}
	if run.Report != nil {
		data, err := json.Marshal(run.Report)
		if err != nil {
			return 0, fmt.Errorf("encode report: %w", err)
		}
		reportJSON = sql.NullString{String: string(data), Valid: true}
	}

	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (created_at, label, overall_score, framework, result_json, report_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		created, run.Label, run.OverallScore, string(run.Framework), resultJSON, reportJSON)
	if err != nil {
		return 0, fmt.Errorf("save run: %w", err)
	}
	return res.LastInsertId()
}

// GetRun loads one run with its full payloads.
func (s *Store) GetRun(ctx context.Context, id int64) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, label, overall_score, framework, result_json, report_json
		 FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns the most recent runs, newest first, without the full
// payloads.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, label, overall_score, framework
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var framework string
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Label, &r.OverallScore, &framework); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Framework = committee.Framework(framework)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var framework string
	var resultJSON, reportJSON sql.NullString
	err := row.Scan(&r.ID, &r.CreatedAt, &r.Label, &r.OverallScore, &framework, &resultJSON, &reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.Framework = committee.Framework(framework)

	if resultJSON.Valid {
		var result committee.EvaluationResult
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return Run{}, fmt.Errorf("decode result: %w", err)
		}
		r.Result = &result
	}
	if reportJSON.Valid {
		var report dedupe.DuplicateReport
		if err := json.Unmarshal([]byte(reportJSON.String), &report); err != nil {
			return Run{}, fmt.Errorf("decode report: %w", err)
		}
		r.Report = &report
	}
	return r, nil
}
