package orchestrator

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/archon-ai/orchestrator/internal/metrics"
	"github.com/archon-ai/orchestrator/internal/orcherr"
	"github.com/archon-ai/orchestrator/providers"
)

// Orchestrator wires together the task store, priority queue, agent
// registry, selector, scheduler, and dependency watcher into the single
// control-plane object the API layer talks to.
type Orchestrator struct {
	store    *TaskStore
	queue    *PriorityQueue
	registry *AgentRegistry
	selector *Selector
	metrics  *MetricsAggregator
	scheduler *Scheduler
	watcher  *DependencyWatcher
	logger   *zap.Logger

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Options configures a new Orchestrator.
type Options struct {
	MaxConcurrentTasks int
	MetricsNamespace   string
}

// New builds an Orchestrator with a fresh task store, queue, and agent
// registry, and a scheduler sized to MaxConcurrentTasks (default 10).
func New(opts Options, logger *zap.Logger) *Orchestrator {
	if opts.MaxConcurrentTasks <= 0 {
		opts.MaxConcurrentTasks = 10
	}
	if opts.MetricsNamespace == "" {
		opts.MetricsNamespace = "archon_orchestrator"
	}

	store := NewTaskStore()
	queue := NewPriorityQueue()
	registry := NewAgentRegistry(logger)
	selector := NewSelector(registry)
	agg := NewMetricsAggregator(metrics.NewCollector(opts.MetricsNamespace, logger))
	scheduler := NewScheduler(opts.MaxConcurrentTasks, store, queue, registry, selector, agg, logger)
	watcher := NewDependencyWatcher(store, queue, logger)

	return &Orchestrator{
		store:     store,
		queue:     queue,
		registry:  registry,
		selector:  selector,
		metrics:   agg,
		scheduler: scheduler,
		watcher:   watcher,
		logger:    logger.With(zap.String("component", "orchestrator")),
	}
}

// Start launches the scheduler's worker pool and the dependency watcher in
// the background. It returns immediately; call Stop to shut down.
func (o *Orchestrator) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.done = make(chan struct{})
	o.running.Store(true)

	go func() {
		defer close(o.done)
		errCh := make(chan error, 2)
		go func() { errCh <- o.scheduler.Run(runCtx) }()
		go func() { errCh <- o.watcher.Run(runCtx) }()
		<-runCtx.Done()
		<-errCh
		<-errCh
	}()

	o.logger.Info("orchestrator started", zap.Int("workers", o.scheduler.workers))
}

// Stop cancels the scheduler and watcher and waits for them to exit.
func (o *Orchestrator) Stop() {
	if o.cancel == nil {
		return
	}
	o.running.Store(false)
	o.cancel()
	<-o.done
	o.logger.Info("orchestrator stopped")
}

// RegisterAgent adds an agent backed by the given provider adapter.
func (o *Orchestrator) RegisterAgent(agentID, name, provider string, capabilities []string, adapter providers.Provider, metadata map[string]string) *Agent {
	return o.registry.Register(agentID, name, provider, capabilities, adapter, metadata)
}

// UnregisterAgent removes an agent. Any task currently assigned to it is
// reset to pending and requeued.
func (o *Orchestrator) UnregisterAgent(agentID string) bool {
	agent, ok := o.registry.Unregister(agentID)
	if !ok {
		return false
	}

	for _, t := range o.store.All() {
		snap := t.Snapshot()
		if snap.AssignedAgent != agentID {
			continue
		}
		if snap.Status != TaskAssigned && snap.Status != TaskInProgress {
			continue
		}
		t.Requeue("agent unregistered: " + agentID)
		if o.store.MarkQueued(t.ID) {
			o.queue.Push(t.ID, t.Priority, t.CreatedAt)
		}
	}

	o.logger.Info("unregistered agent", zap.String("agent_id", agentID), zap.String("name", agent.Name))
	return true
}

// SubmitTask creates a task and, if its dependencies are already met,
// enqueues it immediately. Unmet-dependency tasks are picked up by the
// DependencyWatcher once their blockers complete.
func (o *Orchestrator) SubmitTask(taskType, prompt string, priority Priority, dependencies []string, metadata map[string]string) (*Task, error) {
	task, err := o.store.Create(taskType, prompt, priority, dependencies, metadata)
	if err != nil {
		return nil, err
	}

	if o.store.DependenciesMet(task) && o.store.MarkQueued(task.ID) {
		o.queue.Push(task.ID, task.Priority, task.CreatedAt)
	}
	return task, nil
}

// GetTask returns a task's current snapshot.
func (o *Orchestrator) GetTask(taskID string) (TaskView, bool) {
	t, ok := o.store.Get(taskID)
	if !ok {
		return TaskView{}, false
	}
	return t.Snapshot(), true
}

// ListTasks returns a snapshot of every task.
func (o *Orchestrator) ListTasks() []TaskView {
	tasks := o.store.All()
	out := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Snapshot())
	}
	return out
}

// StatusReport is the control API's top-level status payload.
type StatusReport struct {
	Running            bool
	Agents             []*Agent
	Tasks              TaskCounts
	QueueSize          int
	ActiveTasks        int
	PerformanceMetrics map[string]metrics.ProviderSnapshot
}

// Status reports the orchestrator's current state.
func (o *Orchestrator) Status() StatusReport {
	return StatusReport{
		Running:            o.running.Load(),
		Agents:             o.registry.All(),
		Tasks:              o.store.Counts(),
		QueueSize:          o.queue.Len(),
		ActiveTasks:        o.countInProgress(),
		PerformanceMetrics: o.metrics.Snapshot(),
	}
}

func (o *Orchestrator) countInProgress() int {
	n := 0
	for _, t := range o.store.All() {
		if t.Snapshot().Status == TaskInProgress {
			n++
		}
	}
	return n
}

// TestAgent runs a short synthetic prompt through a single agent's
// provider and reports whether it succeeded, used by the control API's
// /agents/{id}/test endpoint.
func (o *Orchestrator) TestAgent(ctx context.Context, agentID string) (map[string]any, error) {
	provider, ok := o.registry.Provider(agentID)
	if !ok {
		return nil, orcherr.New(orcherr.NotFoundError, "agent not found: "+agentID)
	}

	testCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return provider.Execute(testCtx, "Respond with a short acknowledgement to confirm you are reachable.", nil)
}
