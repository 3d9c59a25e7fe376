// Package orchestrator coordinates task execution across registered
// provider-backed agents: queueing, dependency resolution, agent selection,
// bounded concurrency, retries, and performance tracking.
package orchestrator

import (
	"sync"
	"time"
)

// Priority is the scheduling priority of a task. Higher values are
// serviced first; within a priority, tasks are serviced FIFO.
type Priority int

const (
	PriorityLow      Priority = 1
	PriorityMedium   Priority = 2
	PriorityHigh     Priority = 3
	PriorityCritical Priority = 4
)

// ParsePriority converts a user-supplied priority string to a Priority,
// defaulting to PriorityMedium for unrecognized values.
func ParsePriority(s string) Priority {
	switch s {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	case "critical":
		return PriorityCritical
	default:
		return PriorityMedium
	}
}

// String renders the priority in the lowercase wire form used by the API.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "medium"
	}
}

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskAssigned   TaskStatus = "assigned"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskCancelled  TaskStatus = "cancelled"
)

// AgentStatus is the availability state of a registered Agent.
type AgentStatus string

const (
	AgentIdle         AgentStatus = "idle"
	AgentBusy         AgentStatus = "busy"
	AgentError        AgentStatus = "error"
	AgentOffline      AgentStatus = "offline"
	AgentInitializing AgentStatus = "initializing"
)

// Task represents a unit of work submitted for execution by one agent.
// Fields are mutated under mu by the scheduler as the task moves through
// its lifecycle; readers (the control API) should use Snapshot rather
// than touching fields directly.
type Task struct {
	mu sync.Mutex

	ID            string
	Type          string
	Prompt        string
	Metadata      map[string]string
	Priority      Priority
	Status        TaskStatus
	Dependencies  []string
	AssignedAgent string
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	Result        map[string]any
	Err           string
	RetryCount    int
	MaxRetries    int

	// queued tracks whether this task currently has an entry in the
	// priority queue, so a task is never enqueued twice at once (the
	// dependency watcher and the initial submission path can otherwise
	// race to enqueue the same ready task).
	queued bool
}

// TaskView is an immutable snapshot of a Task's fields, safe to read
// without holding any lock.
type TaskView struct {
	ID            string
	Type          string
	Prompt        string
	Metadata      map[string]string
	Priority      Priority
	Status        TaskStatus
	Dependencies  []string
	AssignedAgent string
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	Result        map[string]any
	Err           string
	RetryCount    int
	MaxRetries    int
}

// Snapshot copies a Task's current state under lock.
func (t *Task) Snapshot() TaskView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TaskView{
		ID:            t.ID,
		Type:          t.Type,
		Prompt:        t.Prompt,
		Metadata:      t.Metadata,
		Priority:      t.Priority,
		Status:        t.Status,
		Dependencies:  t.Dependencies,
		AssignedAgent: t.AssignedAgent,
		CreatedAt:     t.CreatedAt,
		StartedAt:     t.StartedAt,
		CompletedAt:   t.CompletedAt,
		Result:        t.Result,
		Err:           t.Err,
		RetryCount:    t.RetryCount,
		MaxRetries:    t.MaxRetries,
	}
}

// MarkStarted transitions the task into in-progress, assigned to agentID.
func (t *Task) MarkStarted(agentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.Status = TaskInProgress
	t.AssignedAgent = agentID
	t.StartedAt = &now
}

// current reports, under the caller-held lock, whether the attempt by
// agentID is still the live one. A stale worker (its agent unregistered
// mid-flight, the task requeued and picked up elsewhere) must not apply
// its outcome over the newer attempt's state.
func (t *Task) current(agentID string) bool {
	return t.Status == TaskInProgress && t.AssignedAgent == agentID
}

// MarkCompleted transitions the task to TaskCompleted with its result.
// Returns false if the attempt by agentID is no longer current.
func (t *Task) MarkCompleted(agentID string, result map[string]any) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.current(agentID) {
		return false
	}
	now := time.Now()
	t.Status = TaskCompleted
	t.CompletedAt = &now
	t.Result = result
	return true
}

// MarkRetry records a failed attempt and moves the task back to pending
// for requeue, incrementing its retry count. CompletedAt is left unset —
// the task has not reached a terminal state. Returns false if the attempt
// by agentID is no longer current.
func (t *Task) MarkRetry(agentID, errMsg string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.current(agentID) {
		return false
	}
	t.Err = errMsg
	t.RetryCount++
	t.Status = TaskPending
	t.AssignedAgent = ""
	return true
}

// MarkFailed transitions the task to TaskFailed with no retries remaining.
// Returns false if the attempt by agentID is no longer current.
func (t *Task) MarkFailed(agentID, errMsg string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.current(agentID) {
		return false
	}
	now := time.Now()
	t.Err = errMsg
	t.Status = TaskFailed
	t.CompletedAt = &now
	return true
}

// Requeue resets an assigned or in-progress task to pending with its
// assignment cleared, without consuming a retry. Used when the task's
// agent is unregistered out from under it.
func (t *Task) Requeue(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Err = reason
	t.Status = TaskPending
	t.AssignedAgent = ""
}

// RetriesRemaining reports whether the task may still be retried.
func (t *Task) RetriesRemaining() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.RetryCount < t.MaxRetries
}

// Agent represents a registered provider-backed worker.
type Agent struct {
	ID                  string
	Name                string
	Provider            string
	Capabilities        map[string]struct{}
	Status              AgentStatus
	CurrentTask         string
	TasksCompleted      int64
	TasksFailed         int64
	AverageResponseTime time.Duration
	LastActive          time.Time
	Metadata            map[string]string
}

// clone copies the agent record. Capabilities and Metadata are shared:
// both are read-only after registration.
func (a *Agent) clone() *Agent {
	c := *a
	return &c
}

// HasCapability reports whether the agent declares cap explicitly, or
// declares the catch-all "general" capability.
func (a *Agent) HasCapability(cap string) bool {
	if _, ok := a.Capabilities[cap]; ok {
		return true
	}
	_, ok := a.Capabilities["general"]
	return ok
}
