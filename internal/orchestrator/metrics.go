package orchestrator

import (
	"time"

	"github.com/archon-ai/orchestrator/internal/metrics"
)

// MetricsAggregator is the orchestrator's thin wrapper over the shared
// Prometheus metrics.Collector, translating task outcomes into the
// per-provider performance view the control API's /metrics endpoint
// returns.
type MetricsAggregator struct {
	collector *metrics.Collector
}

// NewMetricsAggregator wraps a metrics.Collector for orchestrator use.
func NewMetricsAggregator(collector *metrics.Collector) *MetricsAggregator {
	return &MetricsAggregator{collector: collector}
}

// RecordCompletion records the outcome of one execution attempt, including
// failed attempts that are later retried.
func (m *MetricsAggregator) RecordCompletion(provider, agentID string, success bool, elapsed time.Duration) {
	m.collector.RecordCompletion(provider, agentID, success, elapsed)
}

// SetQueueSize reports the current ready-queue depth.
func (m *MetricsAggregator) SetQueueSize(n int) {
	m.collector.SetQueueSize(n)
}

// SetActiveTasks reports the current number of in-flight executions.
func (m *MetricsAggregator) SetActiveTasks(n int) {
	m.collector.SetActiveTasks(n)
}

// Snapshot returns the per-provider performance table: total/successful/
// failed task counts, cumulative time, and average time.
func (m *MetricsAggregator) Snapshot() map[string]metrics.ProviderSnapshot {
	return m.collector.Snapshot()
}
