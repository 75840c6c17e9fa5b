// Package buffer provides the bounded hand-off queue between a tracking
// backend's network goroutine and the gateway tick loop.
//
// Backends enqueue decoded frames as they arrive; the tick loop drains
// the queue at its own pace. A full queue sheds load according to its
// overflow policy instead of blocking the network goroutine.
package buffer

import "sync"

// OverflowPolicy selects which item a full queue sheds.
type OverflowPolicy int

const (
	// DropNewest discards the incoming item. Backends use this so a
	// stalled tick loop keeps the already-queued frames in order.
	DropNewest OverflowPolicy = iota

	// DropOldest evicts the oldest queued item to make room.
	DropOldest
)

// String returns a human-readable representation of the overflow policy.
func (p OverflowPolicy) String() string {
	switch p {
	case DropNewest:
		return "DropNewest"
	case DropOldest:
		return "DropOldest"
	default:
		return "Unknown"
	}
}

// Queue is a fixed-capacity FIFO ring, safe for concurrent writers and
// readers.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	head   int // next write slot
	tail   int // next read slot
	size   int
	policy OverflowPolicy

	writes  int64
	drops   int64
	metrics *queueMetrics
}

// NewQueue creates a queue holding at most capacity items. A capacity
// below one is raised to one.
func NewQueue[T any](capacity int, policy OverflowPolicy) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		items:  make([]T, capacity),
		policy: policy,
	}
}

// Write enqueues item, shedding per the overflow policy when full. It
// reports whether the item was queued.
func (q *Queue[T]) Write(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == len(q.items) {
		q.drops++
		if q.metrics != nil {
			q.metrics.drops.Inc()
		}
		if q.policy == DropNewest {
			return false
		}
		var zero T
		q.items[q.tail] = zero
		q.tail = (q.tail + 1) % len(q.items)
		q.size--
	}

	q.items[q.head] = item
	q.head = (q.head + 1) % len(q.items)
	q.size++
	q.writes++

	if q.metrics != nil {
		q.metrics.writes.Inc()
		q.metrics.depth.Set(float64(q.size))
	}

	return true
}

// Read dequeues the oldest item. It returns the zero value and false
// when the queue is empty.
func (q *Queue[T]) Read() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.size == 0 {
		return zero, false
	}

	item := q.items[q.tail]
	q.items[q.tail] = zero // release for GC
	q.tail = (q.tail + 1) % len(q.items)
	q.size--

	if q.metrics != nil {
		q.metrics.depth.Set(float64(q.size))
	}

	return item, true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return len(q.items) // immutable
}

// Writes returns the number of items accepted so far.
func (q *Queue[T]) Writes() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.writes
}

// Drops returns the number of items shed by the overflow policy.
func (q *Queue[T]) Drops() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.drops
}
