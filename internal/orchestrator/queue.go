package orchestrator

import (
	"container/heap"
	"sync"
	"time"
)

// queueItem is one entry in the priority heap: the task ID plus the
// ordering key (priority desc, then task creation time asc for FIFO
// tie-break within a priority band). Ordering on creation time rather
// than enqueue order means a requeued task (retry, dependency promotion)
// keeps its original place among equal-priority peers.
type queueItem struct {
	taskID   string
	priority Priority
	created  time.Time
	seq      uint64
	index    int
}

// itemHeap implements container/heap.Interface. Highest priority first;
// ties broken by earliest creation time, then enqueue sequence.
type itemHeap []*queueItem

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	if !h[i].created.Equal(h[j].created) {
		return h[i].created.Before(h[j].created)
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *itemHeap) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// PriorityQueue is a concurrency-safe ready queue of task IDs ordered by
// Priority, FIFO within a priority band. Pull blocks up to a timeout when
// the queue is empty, matching the worker loop's 1-second poll cadence.
type PriorityQueue struct {
	mu     sync.Mutex
	heap   itemHeap
	seq    uint64
	notify chan struct{}
	closed bool
}

// NewPriorityQueue creates an empty priority queue.
func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{notify: make(chan struct{}, 1)}
}

// Push enqueues a task ID at the given priority, with created as the
// FIFO tie-break key within the priority band.
func (q *PriorityQueue) Push(taskID string, priority Priority, created time.Time) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.seq++
	heap.Push(&q.heap, &queueItem{taskID: taskID, priority: priority, created: created, seq: q.seq})
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Pull waits up to timeout for a task ID, returning ok=false on timeout or
// if the queue was closed while waiting.
func (q *PriorityQueue) Pull(timeout time.Duration) (taskID string, ok bool) {
	deadline := time.Now().Add(timeout)

	for {
		q.mu.Lock()
		if q.heap.Len() > 0 {
			item := heap.Pop(&q.heap).(*queueItem)
			q.mu.Unlock()
			return item.taskID, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			// Pass the close signal on so every other waiter wakes too.
			select {
			case q.notify <- struct{}{}:
			default:
			}
			return "", false
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", false
		}

		select {
		case <-q.notify:
			continue
		case <-time.After(remaining):
			return "", false
		}
	}
}

// Len returns the current number of ready tasks in the queue.
func (q *PriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

// Close unblocks any goroutine waiting in Pull. Subsequent Push calls are
// no-ops.
func (q *PriorityQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}
