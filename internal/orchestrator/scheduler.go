package orchestrator

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/archon-ai/orchestrator/internal/orcherr"
)

const (
	queuePullTimeout   = 1 * time.Second
	noAgentRetryDelay  = 1 * time.Second
	taskExecuteTimeout = 60 * time.Second
	healthCheckTimeout = 5 * time.Second
)

// Scheduler runs a fixed pool of worker goroutines that pull ready task
// IDs from the priority queue, select an eligible agent, and execute the
// task through that agent's provider. The worker count is a hard
// concurrency cap, not a burst allowance, so the pool never grows or
// shrinks.
type Scheduler struct {
	store    *TaskStore
	queue    *PriorityQueue
	registry *AgentRegistry
	selector *Selector
	metrics  *MetricsAggregator
	logger   *zap.Logger

	workers int
	active  atomic.Int64
}

// NewScheduler creates a Scheduler with the given fixed worker count.
func NewScheduler(workers int, store *TaskStore, queue *PriorityQueue, registry *AgentRegistry, selector *Selector, metrics *MetricsAggregator, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		queue:    queue,
		registry: registry,
		selector: selector,
		metrics:  metrics,
		logger:   logger.With(zap.String("component", "scheduler")),
		workers:  workers,
	}
}

// Run starts the worker pool and blocks until ctx is cancelled and every
// worker has returned. Workers always return nil, so Run returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < s.workers; i++ {
		workerID := i
		g.Go(func() error {
			s.worker(ctx, workerID)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) worker(ctx context.Context, workerID int) {
	log := s.logger.With(zap.Int("worker_id", workerID))
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		taskID, ok := s.queue.Pull(queuePullTimeout)
		s.metrics.SetQueueSize(s.queue.Len())
		if !ok {
			continue
		}

		task, exists := s.store.Get(taskID)
		if !exists {
			s.store.ClearQueued(taskID)
			continue
		}

		agentID := s.selector.Select(task)
		if agentID == "" {
			// No eligible agent right now; requeue and back off before
			// retrying. TODO: a condition-variable wakeup on agent-idle
			// would avoid the busy wait under zero-agent load.
			s.queue.Push(task.ID, task.Priority, task.CreatedAt)
			select {
			case <-ctx.Done():
				return
			case <-time.After(noAgentRetryDelay):
			}
			continue
		}

		s.store.ClearQueued(taskID)
		s.executeTask(ctx, task, agentID, log)
	}
}

// requeue puts a task back on the ready queue, honouring the at-most-once
// enqueue bookkeeping so a concurrent watcher scan cannot double-enqueue it.
func (s *Scheduler) requeue(task *Task) {
	if s.store.MarkQueued(task.ID) {
		s.queue.Push(task.ID, task.Priority, task.CreatedAt)
	}
}

func (s *Scheduler) executeTask(ctx context.Context, task *Task, agentID string, log *zap.Logger) {
	provider, ok := s.registry.Provider(agentID)
	if !ok {
		log.Error("no provider adapter for agent", zap.String("agent_id", agentID))
		s.requeue(task)
		return
	}

	agent, ok := s.registry.Get(agentID)
	if !ok {
		s.requeue(task)
		return
	}

	if err := s.registry.MarkBusy(agentID, task.ID); err != nil {
		s.requeue(task)
		return
	}

	task.MarkStarted(agentID)
	s.metrics.SetActiveTasks(int(s.active.Add(1)))
	defer func() { s.metrics.SetActiveTasks(int(s.active.Add(-1))) }()

	execCtx, cancel := context.WithTimeout(ctx, taskExecuteTimeout)
	start := time.Now()
	result, err := provider.Execute(execCtx, task.Prompt, task.Metadata)
	cancel()
	elapsed := time.Since(start)

	success := err == nil
	s.registry.RecordCompletion(agentID, success, elapsed)
	s.metrics.RecordCompletion(agent.Provider, agentID, success, elapsed)

	if success {
		if !task.MarkCompleted(agentID, result) {
			log.Warn("dropping stale task result",
				zap.String("task_id", task.ID), zap.String("agent_id", agentID))
			return
		}

		log.Info("task completed",
			zap.String("task_id", task.ID),
			zap.String("agent_id", agentID),
			zap.Duration("elapsed", elapsed))

		s.enqueueDependents(task)
		return
	}

	retryable := orcherr.IsRetryable(err)

	log.Warn("task execution failed",
		zap.String("task_id", task.ID),
		zap.String("agent_id", agentID),
		zap.Error(err),
		zap.Bool("retryable", retryable))

	if retryable && task.RetriesRemaining() {
		if task.MarkRetry(agentID, err.Error()) {
			s.requeue(task)
			log.Info("retrying task",
				zap.String("task_id", task.ID),
				zap.Int("attempt", task.Snapshot().RetryCount),
				zap.Int("max_retries", task.MaxRetries))
		}
		return
	}

	task.MarkFailed(agentID, err.Error())
}

func (s *Scheduler) enqueueDependents(task *Task) {
	for _, dependent := range s.store.Dependents(task.ID) {
		if dependent.Snapshot().Status != TaskPending {
			continue
		}
		if s.store.DependenciesMet(dependent) && s.store.MarkQueued(dependent.ID) {
			s.queue.Push(dependent.ID, dependent.Priority, dependent.CreatedAt)
		}
	}
}
