package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.tasksTotal)
	assert.NotNil(t, collector.taskDuration)
	assert.NotNil(t, collector.agentExecutions)
	assert.NotNil(t, collector.queueSize)
	assert.NotNil(t, collector.activeTasks)
	assert.Empty(t, collector.Snapshot())
}

func TestCollector_RecordCompletion_Success(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordCompletion("openai", "agent-1", true, 200*time.Millisecond)

	count := testutil.CollectAndCount(collector.tasksTotal)
	assert.Greater(t, count, 0)

	rec, ok := collector.ProviderMetrics("openai")
	require.True(t, ok)
	assert.EqualValues(t, 1, rec.TotalTasks)
	assert.EqualValues(t, 1, rec.SuccessfulTasks)
	assert.EqualValues(t, 0, rec.FailedTasks)
	assert.Equal(t, 200*time.Millisecond, rec.TotalTime)
	assert.Equal(t, 200*time.Millisecond, rec.AverageTime)
}

func TestCollector_RecordCompletion_AverageAcrossAttempts(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordCompletion("anthropic", "agent-1", true, 100*time.Millisecond)
	collector.RecordCompletion("anthropic", "agent-2", false, 300*time.Millisecond)

	rec, ok := collector.ProviderMetrics("anthropic")
	require.True(t, ok)
	assert.EqualValues(t, 2, rec.TotalTasks)
	assert.EqualValues(t, 1, rec.SuccessfulTasks)
	assert.EqualValues(t, 1, rec.FailedTasks)
	assert.Equal(t, 400*time.Millisecond, rec.TotalTime)
	assert.Equal(t, 200*time.Millisecond, rec.AverageTime)
}

func TestCollector_ProviderMetrics_Unknown(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	_, ok := collector.ProviderMetrics("nonexistent")
	assert.False(t, ok)
}

func TestCollector_SetQueueSizeAndActiveTasks(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.SetQueueSize(5)
	collector.SetActiveTasks(3)

	assert.InDelta(t, 5, testutil.ToFloat64(collector.queueSize), 0.001)
	assert.InDelta(t, 3, testutil.ToFloat64(collector.activeTasks), 0.001)
}

func TestCollector_Snapshot_IsCopy(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordCompletion("grok", "agent-1", true, 50*time.Millisecond)

	snap := collector.Snapshot()
	require.Contains(t, snap, "grok")

	entry := snap["grok"]
	entry.TotalTasks = 999 // mutating the copy must not affect the collector

	rec, ok := collector.ProviderMetrics("grok")
	require.True(t, ok)
	assert.EqualValues(t, 1, rec.TotalTasks)
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			collector.RecordCompletion("openai", "agent-1", id%2 == 0, 100*time.Millisecond)
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	rec, ok := collector.ProviderMetrics("openai")
	require.True(t, ok)
	assert.EqualValues(t, 10, rec.TotalTasks)
	assert.EqualValues(t, 5, rec.SuccessfulTasks)
	assert.EqualValues(t, 5, rec.FailedTasks)
}
