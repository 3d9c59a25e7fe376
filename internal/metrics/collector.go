// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// ProviderSnapshot mirrors the per-provider performance record the control
// API's /metrics endpoint returns: total/successful/failed task counts plus
// cumulative and average execution time.
type ProviderSnapshot struct {
	TotalTasks      int64
	SuccessfulTasks int64
	FailedTasks     int64
	TotalTime       time.Duration
	AverageTime     time.Duration
}

// Collector 指标收集器
//
// Tracks task outcomes per provider, both as Prometheus vectors (for
// /metrics/prom) and as an in-memory snapshot table (for the JSON /metrics
// projection), so the two views never disagree.
type Collector struct {
	tasksTotal      *prometheus.CounterVec
	taskDuration    *prometheus.HistogramVec
	agentExecutions *prometheus.CounterVec
	queueSize       prometheus.Gauge
	activeTasks     prometheus.Gauge

	logger *zap.Logger
	mu     sync.RWMutex
	byProv map[string]*ProviderSnapshot
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
		byProv: make(map[string]*ProviderSnapshot),
	}

	c.tasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Total number of task attempts completed, by provider and outcome",
		},
		[]string{"provider", "outcome"}, // outcome: success, failure
	)

	c.taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Task execution duration in seconds, by provider",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	c.agentExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_executions_total",
			Help:      "Total number of task executions, by agent and outcome",
		},
		[]string{"agent_id", "outcome"},
	)

	c.queueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_size",
		Help:      "Current number of ready tasks waiting in the priority queue",
	})

	c.activeTasks = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_tasks",
		Help:      "Current number of tasks being executed by a worker",
	})

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 任务指标记录
// =============================================================================

// RecordCompletion records the outcome of one execution attempt (success or
// failure) for a provider/agent pair. Every attempt is recorded, including
// a failed attempt whose task is then retried, so total/successful/failed/
// total_time count attempts rather than tasks.
func (c *Collector) RecordCompletion(provider, agentID string, success bool, duration time.Duration) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	c.tasksTotal.WithLabelValues(provider, outcome).Inc()
	c.taskDuration.WithLabelValues(provider).Observe(duration.Seconds())
	c.agentExecutions.WithLabelValues(agentID, outcome).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.byProv[provider]
	if !ok {
		rec = &ProviderSnapshot{}
		c.byProv[provider] = rec
	}
	rec.TotalTasks++
	if success {
		rec.SuccessfulTasks++
	} else {
		rec.FailedTasks++
	}
	rec.TotalTime += duration
	rec.AverageTime = rec.TotalTime / time.Duration(rec.TotalTasks)
}

// SetQueueSize reports the current ready-queue depth.
func (c *Collector) SetQueueSize(n int) {
	c.queueSize.Set(float64(n))
}

// SetActiveTasks reports the current number of in-flight executions.
func (c *Collector) SetActiveTasks(n int) {
	c.activeTasks.Set(float64(n))
}

// Snapshot returns a copy of every provider's accumulated record, keyed by
// provider tag.
func (c *Collector) Snapshot() map[string]ProviderSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]ProviderSnapshot, len(c.byProv))
	for k, v := range c.byProv {
		out[k] = *v
	}
	return out
}

// ProviderMetrics returns the accumulated record for a single provider. The
// second return value is false if the provider has never completed a task.
func (c *Collector) ProviderMetrics(provider string) (ProviderSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.byProv[provider]
	if !ok {
		return ProviderSnapshot{}, false
	}
	return *rec, true
}
