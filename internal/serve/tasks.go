package serve

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/shahbajlive/caseval/internal/committee"
	"github.com/shahbajlive/caseval/internal/dedupe"
)

// TaskStatus is the lifecycle state of an asynchronous evaluation.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Task tracks one asynchronous evaluation request.
type Task struct {
	ID        string     `json:"id"`
	Status    TaskStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Error  string                      `json:"error,omitempty"`
	Result *committee.EvaluationResult `json:"result,omitempty"`
	Report *dedupe.DuplicateReport     `json:"report,omitempty"`

	// RunID references the persisted history entry, when history is enabled.
	RunID int64 `json:"run_id,omitempty"`
}

// taskManager keeps tasks in memory. Tasks are not persisted; clients that
// need durable results read the run history instead.
type taskManager struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

func newTaskManager() *taskManager {
	return &taskManager{tasks: make(map[string]*Task)}
}

func (m *taskManager) create() *Task {
	buf := make([]byte, 8)
	rand.Read(buf)
	now := time.Now().UTC()
	t := &Task{
		ID:        hex.EncodeToString(buf),
		Status:    TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.mu.Lock()
	m.tasks[t.ID] = t
	m.mu.Unlock()
	return t
}

func (m *taskManager) get(id string) (Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

func (m *taskManager) update(id string, fn func(*Task)) (Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, false
	}
	fn(t)
	t.UpdatedAt = time.Now().UTC()
	return *t, true
}
