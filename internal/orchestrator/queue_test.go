package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityQueue_HigherPriorityFirst(t *testing.T) {
	q := NewPriorityQueue()
	base := time.Now()

	q.Push("low", PriorityLow, base)
	q.Push("critical", PriorityCritical, base.Add(time.Millisecond))
	q.Push("medium", PriorityMedium, base.Add(2*time.Millisecond))
	q.Push("high", PriorityHigh, base.Add(3*time.Millisecond))

	for _, want := range []string{"critical", "high", "medium", "low"} {
		got, ok := q.Pull(time.Second)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestPriorityQueue_FIFOWithinPriority(t *testing.T) {
	q := NewPriorityQueue()
	base := time.Now()

	q.Push("first", PriorityMedium, base)
	q.Push("second", PriorityMedium, base.Add(time.Millisecond))
	q.Push("third", PriorityMedium, base.Add(2*time.Millisecond))

	for _, want := range []string{"first", "second", "third"} {
		got, ok := q.Pull(time.Second)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestPriorityQueue_RequeueKeepsOriginalPlace(t *testing.T) {
	q := NewPriorityQueue()
	base := time.Now()

	q.Push("older", PriorityMedium, base)
	q.Push("newer", PriorityMedium, base.Add(time.Millisecond))

	got, ok := q.Pull(time.Second)
	require.True(t, ok)
	require.Equal(t, "older", got)

	// Requeued with its original creation time (e.g. a retry), the older
	// task goes back ahead of the newer one.
	q.Push("older", PriorityMedium, base)

	got, ok = q.Pull(time.Second)
	require.True(t, ok)
	assert.Equal(t, "older", got)
}

func TestPriorityQueue_PullTimesOutWhenEmpty(t *testing.T) {
	q := NewPriorityQueue()

	start := time.Now()
	_, ok := q.Pull(50 * time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestPriorityQueue_PushWakesWaitingPull(t *testing.T) {
	q := NewPriorityQueue()

	done := make(chan string, 1)
	go func() {
		id, ok := q.Pull(2 * time.Second)
		if !ok {
			id = ""
		}
		done <- id
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push("task", PriorityMedium, time.Now())

	select {
	case id := <-done:
		assert.Equal(t, "task", id)
	case <-time.After(time.Second):
		t.Fatal("pull never woke up")
	}
}

func TestPriorityQueue_CloseUnblocksPull(t *testing.T) {
	q := NewPriorityQueue()

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Pull(5 * time.Second)
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("pull did not unblock on close")
	}

	// Pushing after close is a no-op.
	q.Push("late", PriorityHigh, time.Now())
	assert.Equal(t, 0, q.Len())
}

func TestPriorityQueue_Len(t *testing.T) {
	q := NewPriorityQueue()
	assert.Equal(t, 0, q.Len())

	q.Push("a", PriorityLow, time.Now())
	q.Push("b", PriorityHigh, time.Now())
	assert.Equal(t, 2, q.Len())

	q.Pull(time.Second)
	assert.Equal(t, 1, q.Len())
}
