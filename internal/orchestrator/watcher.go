package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DependencyWatcher periodically scans pending tasks and enqueues any
// whose dependencies have all reached TaskCompleted. It is a safety net
// behind the scheduler's direct dependent-promotion on task completion.
type DependencyWatcher struct {
	store  *TaskStore
	queue  *PriorityQueue
	logger *zap.Logger
	period time.Duration
}

// NewDependencyWatcher creates a watcher over the given store and queue.
func NewDependencyWatcher(store *TaskStore, queue *PriorityQueue, logger *zap.Logger) *DependencyWatcher {
	return &DependencyWatcher{
		store:  store,
		queue:  queue,
		logger: logger.With(zap.String("component", "dependency_watcher")),
		period: time.Second,
	}
}

// Run blocks, scanning on each tick until ctx is cancelled.
func (w *DependencyWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.scan()
		}
	}
}

func (w *DependencyWatcher) scan() {
	for _, t := range w.store.All() {
		if t.Snapshot().Status != TaskPending || len(t.Dependencies) == 0 {
			continue
		}
		if w.store.DependenciesMet(t) && w.store.MarkQueued(t.ID) {
			w.queue.Push(t.ID, t.Priority, t.CreatedAt)
			w.logger.Info("task dependencies met, enqueued",
				zap.String("task_id", t.ID),
				zap.Strings("dependencies", t.Dependencies))
		}
	}
}
