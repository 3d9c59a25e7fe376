package orchestrator

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/archon-ai/orchestrator/internal/orcherr"
	"github.com/archon-ai/orchestrator/providers"
)

// AgentRegistry tracks every registered agent and the live Provider
// instance backing it.
type AgentRegistry struct {
	mu        sync.RWMutex
	agents    map[string]*Agent
	providers map[string]providers.Provider
	logger    *zap.Logger
}

// NewAgentRegistry creates an empty agent registry.
func NewAgentRegistry(logger *zap.Logger) *AgentRegistry {
	return &AgentRegistry{
		agents:    make(map[string]*Agent),
		providers: make(map[string]providers.Provider),
		logger:    logger.With(zap.String("component", "agent_registry")),
	}
}

// Register adds or replaces an agent, along with the Provider instance
// that executes its tasks.
func (r *AgentRegistry) Register(agentID, name, provider string, capabilities []string, adapter providers.Provider, metadata map[string]string) *Agent {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[agentID]; exists {
		r.logger.Warn("agent already registered, replacing", zap.String("agent_id", agentID))
	}

	capSet := make(map[string]struct{}, len(capabilities))
	for _, c := range capabilities {
		capSet[c] = struct{}{}
	}

	agent := &Agent{
		ID:           agentID,
		Name:         name,
		Provider:     provider,
		Capabilities: capSet,
		Status:       AgentIdle,
		Metadata:     metadata,
	}
	r.agents[agentID] = agent
	if adapter != nil {
		r.providers[agentID] = adapter
	}

	r.logger.Info("registered agent",
		zap.String("agent_id", agentID),
		zap.String("name", name),
		zap.String("provider", provider),
		zap.Strings("capabilities", capabilities))

	return agent.clone()
}

// Unregister removes an agent. The caller is responsible for requeueing
// any task it had in flight (see Orchestrator.UnregisterAgent).
func (r *AgentRegistry) Unregister(agentID string) (*Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[agentID]
	if !ok {
		return nil, false
	}
	delete(r.agents, agentID)
	delete(r.providers, agentID)

	r.logger.Info("unregistered agent", zap.String("agent_id", agentID))
	return agent, true
}

// Get returns a copy of the agent with the given ID. Returning a copy
// keeps readers off the live record, which workers mutate through
// MarkBusy and RecordCompletion under the registry lock.
func (r *AgentRegistry) Get(agentID string) (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[agentID]
	if !ok {
		return nil, false
	}
	return a.clone(), true
}

// Provider returns the Provider instance backing an agent.
func (r *AgentRegistry) Provider(agentID string) (providers.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[agentID]
	return p, ok
}

// All returns a copy of every registered agent.
func (r *AgentRegistry) All() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a.clone())
	}
	return out
}

// MarkBusy transitions an agent to AgentBusy with the given current task.
// Returns a NotFoundError if the agent no longer exists (e.g. it
// was unregistered between selection and dispatch).
func (r *AgentRegistry) MarkBusy(agentID, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok {
		return orcherr.New(orcherr.NotFoundError, "agent not found: "+agentID)
	}
	a.Status = AgentBusy
	a.CurrentTask = taskID
	return nil
}

// RecordCompletion updates an agent's rolling stats after a task finishes
// and resets it to idle. The average response time is a running mean over
// successful completions.
func (r *AgentRegistry) RecordCompletion(agentID string, success bool, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[agentID]
	if !ok {
		return
	}

	if success {
		a.TasksCompleted++
		n := a.TasksCompleted
		a.AverageResponseTime = time.Duration(
			(int64(a.AverageResponseTime)*(n-1) + int64(elapsed)) / n,
		)
	} else {
		a.TasksFailed++
	}

	a.Status = AgentIdle
	a.CurrentTask = ""
	a.LastActive = time.Now()
}
