package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/archon-ai/orchestrator/internal/orcherr"
)

// TaskStore holds every submitted task for the process lifetime. It is
// intentionally in-memory only — persistence across restarts is out of
// scope.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewTaskStore creates an empty task store.
func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[string]*Task)}
}

// Create builds and stores a new Task in TaskPending status, returning it.
// Dependencies must already exist in the store; an unknown dependency ID
// is rejected with a ValidationError.
func (s *TaskStore) Create(taskType, prompt string, priority Priority, dependencies []string, metadata map[string]string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, dep := range dependencies {
		if _, ok := s.tasks[dep]; !ok {
			return nil, orcherr.New(orcherr.ValidationError, "dependency task not found: "+dep)
		}
	}

	task := &Task{
		ID:           uuid.NewString(),
		Type:         taskType,
		Prompt:       prompt,
		Metadata:     metadata,
		Priority:     priority,
		Status:       TaskPending,
		Dependencies: dependencies,
		CreatedAt:    time.Now(),
		MaxRetries:   3,
	}
	s.tasks[task.ID] = task
	return task, nil
}

// Get returns the task with the given ID.
func (s *TaskStore) Get(id string) (*Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	return t, ok
}

// All returns every task currently in the store.
func (s *TaskStore) All() []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out
}

// DependenciesMet reports whether every dependency of a task has reached
// TaskCompleted.
func (s *TaskStore) DependenciesMet(t *Task) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, dep := range t.Dependencies {
		depTask, ok := s.tasks[dep]
		if !ok || depTask.Snapshot().Status != TaskCompleted {
			return false
		}
	}
	return true
}

// MarkQueued atomically flips a task's queued bookkeeping flag from false
// to true, returning true only for the caller that performs the
// transition. This guarantees a task is never pushed onto the priority
// queue twice concurrently (e.g. by both the submission path and the
// dependency watcher).
func (s *TaskStore) MarkQueued(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok || t.queued {
		return false
	}
	t.queued = true
	return true
}

// ClearQueued resets the queued flag once a worker has pulled the task
// off the queue, allowing it to be re-enqueued later (e.g. on retry).
func (s *TaskStore) ClearQueued(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[taskID]; ok {
		t.queued = false
	}
}

// Dependents returns every task that lists taskID as a dependency.
func (s *TaskStore) Dependents(taskID string) []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Task
	for _, t := range s.tasks {
		for _, dep := range t.Dependencies {
			if dep == taskID {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// TaskCounts holds the total number of tasks and the number in each status
// (pending, in progress, completed, failed), used for the control API's
// summary views.
type TaskCounts struct {
	Total      int
	Pending    int
	InProgress int
	Completed  int
	Failed     int
}

// Counts tallies tasks by status.
func (s *TaskStore) Counts() TaskCounts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := TaskCounts{Total: len(s.tasks)}
	for _, t := range s.tasks {
		switch t.Snapshot().Status {
		case TaskPending:
			c.Pending++
		case TaskInProgress:
			c.InProgress++
		case TaskCompleted:
			c.Completed++
		case TaskFailed:
			c.Failed++
		}
	}
	return c
}
