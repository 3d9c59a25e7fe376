package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/archon-ai/orchestrator/internal/orcherr"
	"github.com/archon-ai/orchestrator/internal/orchestrator"
	"github.com/archon-ai/orchestrator/providers/factory"
)

// Handler implements the orchestrator's HTTP control plane. It holds no
// state of its own beyond what it needs to talk to the Orchestrator and
// build new provider adapters on agent registration.
type Handler struct {
	orc      *orchestrator.Orchestrator
	logger   *zap.Logger
	limiters map[string]*rate.Limiter
}

// NewHandler builds a Handler bound to orc. limiters, when non-nil, caps
// the outbound request rate of adapters built for dynamically registered
// agents, keyed by provider tag (see orchestrator.NewProviderLimiters).
func NewHandler(orc *orchestrator.Orchestrator, limiters map[string]*rate.Limiter, logger *zap.Logger) *Handler {
	return &Handler{orc: orc, logger: logger.With(zap.String("component", "api")), limiters: limiters}
}

// --- /health ---

type healthOrchestratorView struct {
	Running     bool `json:"running"`
	AgentsCount int  `json:"agents_count"`
	TasksCount  int  `json:"tasks_count"`
	QueueSize   int  `json:"queue_size"`
}

// HandleHealth reports a lightweight liveness view of the orchestrator.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := h.orc.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"orchestrator": healthOrchestratorView{
			Running:     status.Running,
			AgentsCount: len(status.Agents),
			TasksCount:  status.Tasks.Total,
			QueueSize:   status.QueueSize,
		},
	})
}

// --- /agents ---

type agentView struct {
	Name                string  `json:"name"`
	Provider            string  `json:"provider"`
	Status              string  `json:"status"`
	CurrentTask         string  `json:"current_task"`
	TasksCompleted      int64   `json:"tasks_completed"`
	TasksFailed         int64   `json:"tasks_failed"`
	AverageResponseTime float64 `json:"average_response_time"`
}

// HandleListAgents lists every registered agent.
func (h *Handler) HandleListAgents(w http.ResponseWriter, r *http.Request) {
	if !h.requireRunning(w) {
		return
	}
	agents := make(map[string]agentView)
	for _, a := range h.orc.Status().Agents {
		agents[a.ID] = agentView{
			Name:                a.Name,
			Provider:            a.Provider,
			Status:              string(a.Status),
			CurrentTask:         a.CurrentTask,
			TasksCompleted:      a.TasksCompleted,
			TasksFailed:         a.TasksFailed,
			AverageResponseTime: a.AverageResponseTime.Seconds(),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": agents})
}

type registerAgentRequest struct {
	AgentID      string            `json:"agent_id"`
	Name         string            `json:"name"`
	Provider     string            `json:"provider"`
	Capabilities []string          `json:"capabilities"`
	APIKey       string            `json:"api_key,omitempty"`
	BaseURL      string            `json:"base_url,omitempty"`
	Model        string            `json:"model,omitempty"`
	MCPEndpoint  string            `json:"mcp_endpoint,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// HandleRegisterAgent builds an adapter for the requested provider,
// validates it, and registers it under agent_id.
func (h *Handler) HandleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req registerAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, orcherr.New(orcherr.ValidationError, "invalid JSON body").WithCause(err))
		return
	}
	if req.AgentID == "" || req.Provider == "" || req.Name == "" {
		writeError(w, h.logger, orcherr.New(orcherr.ValidationError, "agent_id, name and provider are required"))
		return
	}

	adapter, err := factory.New(req.Provider, factory.Config{
		APIKey:      req.APIKey,
		BaseURL:     req.BaseURL,
		Model:       req.Model,
		MCPEndpoint: req.MCPEndpoint,
		Timeout:     60 * time.Second,
		Limiter:     h.limiters[strings.ToLower(req.Provider)],
	}, h.logger)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	ctx := r.Context()
	if err := adapter.Initialize(ctx); err != nil {
		writeError(w, h.logger, orcherr.New(orcherr.ProviderUnavailable, "adapter failed to initialize").
			WithCause(err).WithHTTPStatus(http.StatusBadRequest).WithProvider(req.Provider))
		return
	}

	h.orc.RegisterAgent(req.AgentID, req.Name, req.Provider, req.Capabilities, adapter, req.Metadata)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"agent_id": req.AgentID,
		"message":  "agent registered",
	})
}

// HandleUnregisterAgent removes an agent, requeuing its current task if any.
func (h *Handler) HandleUnregisterAgent(w http.ResponseWriter, r *http.Request, agentID string) {
	if agentID == "" {
		writeError(w, h.logger, orcherr.New(orcherr.ValidationError, "agent_id is required"))
		return
	}
	if !h.orc.UnregisterAgent(agentID) {
		writeError(w, h.logger, orcherr.New(orcherr.NotFoundError, "agent not found: "+agentID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "agent unregistered"})
}

// --- /tasks ---

type submitTaskRequest struct {
	TaskType     string            `json:"task_type"`
	Prompt       string            `json:"prompt"`
	Priority     string            `json:"priority,omitempty"`
	Dependencies []string          `json:"dependencies,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// HandleSubmitTask creates a task and enqueues it if its dependencies (if
// any) are already satisfied, returning immediately.
func (h *Handler) HandleSubmitTask(w http.ResponseWriter, r *http.Request) {
	var req submitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, orcherr.New(orcherr.ValidationError, "invalid JSON body").WithCause(err))
		return
	}
	if req.TaskType == "" || req.Prompt == "" {
		writeError(w, h.logger, orcherr.New(orcherr.ValidationError, "task_type and prompt are required"))
		return
	}

	priority := orchestrator.PriorityMedium
	if req.Priority != "" {
		priority = orchestrator.ParsePriority(req.Priority)
	}

	task, err := h.orc.SubmitTask(req.TaskType, req.Prompt, priority, req.Dependencies, req.Metadata)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"task_id": task.ID,
		"status":  "submitted",
		"message": "task submitted",
	})
}

// taskView is the wire projection of a task record returned by /tasks/{id}.
type taskView struct {
	ID            string            `json:"id"`
	Type          string            `json:"task_type"`
	Prompt        string            `json:"prompt"`
	Priority      string            `json:"priority"`
	Status        string            `json:"status"`
	Dependencies  []string          `json:"dependencies"`
	AssignedAgent string            `json:"assigned_agent,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	StartedAt     *time.Time        `json:"started_at,omitempty"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	Result        map[string]any    `json:"result,omitempty"`
	Error         string            `json:"error,omitempty"`
	RetryCount    int               `json:"retry_count"`
	MaxRetries    int               `json:"max_retries"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func toTaskView(t orchestrator.TaskView) taskView {
	return taskView{
		ID:            t.ID,
		Type:          t.Type,
		Prompt:        t.Prompt,
		Priority:      t.Priority.String(),
		Status:        string(t.Status),
		Dependencies:  t.Dependencies,
		AssignedAgent: t.AssignedAgent,
		CreatedAt:     t.CreatedAt,
		StartedAt:     t.StartedAt,
		CompletedAt:   t.CompletedAt,
		Result:        t.Result,
		Error:         t.Err,
		RetryCount:    t.RetryCount,
		MaxRetries:    t.MaxRetries,
		Metadata:      t.Metadata,
	}
}

// HandleGetTask returns one task's current record.
func (h *Handler) HandleGetTask(w http.ResponseWriter, r *http.Request, taskID string) {
	task, ok := h.orc.GetTask(taskID)
	if !ok {
		writeError(w, h.logger, orcherr.New(orcherr.NotFoundError, "task not found: "+taskID))
		return
	}
	writeJSON(w, http.StatusOK, toTaskView(task))
}

// HandleListTasks returns aggregate task counts by status.
func (h *Handler) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	if !h.requireRunning(w) {
		return
	}
	counts := h.orc.Status().Tasks
	writeJSON(w, http.StatusOK, map[string]any{
		"total":       counts.Total,
		"pending":     counts.Pending,
		"in_progress": counts.InProgress,
		"completed":   counts.Completed,
		"failed":      counts.Failed,
	})
}

// providerMetricsView is the wire projection of one provider's
// performance record, durations rendered in seconds.
type providerMetricsView struct {
	TotalTasks      int64   `json:"total_tasks"`
	SuccessfulTasks int64   `json:"successful_tasks"`
	FailedTasks     int64   `json:"failed_tasks"`
	TotalTime       float64 `json:"total_time"`
	AverageTime     float64 `json:"average_time"`
}

func (h *Handler) metricsView() map[string]providerMetricsView {
	snapshot := h.orc.Status().PerformanceMetrics
	out := make(map[string]providerMetricsView, len(snapshot))
	for provider, rec := range snapshot {
		out[provider] = providerMetricsView{
			TotalTasks:      rec.TotalTasks,
			SuccessfulTasks: rec.SuccessfulTasks,
			FailedTasks:     rec.FailedTasks,
			TotalTime:       rec.TotalTime.Seconds(),
			AverageTime:     rec.AverageTime.Seconds(),
		}
	}
	return out
}

// --- /status ---

// HandleStatus returns the full orchestrator status snapshot.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !h.requireRunning(w) {
		return
	}
	status := h.orc.Status()
	agents := make(map[string]agentView, len(status.Agents))
	for _, a := range status.Agents {
		agents[a.ID] = agentView{
			Name:                a.Name,
			Provider:            a.Provider,
			Status:              string(a.Status),
			CurrentTask:         a.CurrentTask,
			TasksCompleted:      a.TasksCompleted,
			TasksFailed:         a.TasksFailed,
			AverageResponseTime: a.AverageResponseTime.Seconds(),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"running": status.Running,
		"agents":  agents,
		"tasks": map[string]int{
			"total":       status.Tasks.Total,
			"pending":     status.Tasks.Pending,
			"in_progress": status.Tasks.InProgress,
			"completed":   status.Tasks.Completed,
			"failed":      status.Tasks.Failed,
		},
		"queue_size":          status.QueueSize,
		"active_tasks":        status.ActiveTasks,
		"performance_metrics": h.metricsView(),
	})
}

// --- /metrics ---

// HandleMetrics returns the JSON per-provider performance snapshot. The
// Prometheus exposition format is served separately at /metrics/prom.
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	if !h.requireRunning(w) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metrics": h.metricsView()})
}

// --- /test ---

// HandleTest submits a canned code_generation task, waits up to 2s, and
// reports the task's id and status at that point (it may still be running).
func (h *Handler) HandleTest(w http.ResponseWriter, r *http.Request) {
	if !h.requireRunning(w) {
		return
	}

	task, err := h.orc.SubmitTask(
		"code_generation",
		"Write a hello world function in Python.",
		orchestrator.PriorityMedium,
		nil,
		nil,
	)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	select {
	case <-r.Context().Done():
	case <-time.After(2 * time.Second):
	}

	view, _ := h.orc.GetTask(task.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Test orchestration initiated",
		"task_id":     task.ID,
		"task_status": string(view.Status),
	})
}

// HandleTestAgent runs a short synthetic prompt through a single agent's
// provider and returns the raw result.
func (h *Handler) HandleTestAgent(w http.ResponseWriter, r *http.Request, agentID string) {
	if agentID == "" {
		writeError(w, h.logger, orcherr.New(orcherr.ValidationError, "agent_id is required"))
		return
	}
	result, err := h.orc.TestAgent(r.Context(), agentID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": result})
}

// requireRunning writes a 503 ServiceNotReady response and returns false
// when the orchestrator has not been started yet.
func (h *Handler) requireRunning(w http.ResponseWriter) bool {
	if !h.orc.Status().Running {
		writeError(w, h.logger, notReady)
		return false
	}
	return true
}
