// Package stream provides the bounded hand-off queue shared by pipeline stages.
package stream

import (
	"context"
	"sync/atomic"
)

// DefaultCapacity matches the depth of every inter-stage queue unless configured.
const DefaultCapacity = 10

// Stats is a point-in-time view of a queue's counters.
type Stats struct {
	Pushed  uint64 `json:"pushed"`
	Dropped uint64 `json:"dropped"`
	Popped  uint64 `json:"popped"`
	Len     int    `json:"len"`
	Cap     int    `json:"cap"`
}

// Queue is a bounded FIFO. Producers never block: a push into a full queue
// is discarded and counted. Consumers may block or poll.
type Queue[T any] struct {
	ch      chan T
	pushed  atomic.Uint64
	dropped atomic.Uint64
	popped  atomic.Uint64
}

// NewQueue creates a queue holding at most capacity items. Non-positive
// capacities fall back to DefaultCapacity.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue[T]{ch: make(chan T, capacity)}
}

// TryPush enqueues v if there is room and reports whether it did.
func (q *Queue[T]) TryPush(v T) bool {
	select {
	case q.ch <- v:
		q.pushed.Add(1)
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Pop blocks until an item is available or ctx is done.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	select {
	case v := <-q.ch:
		q.popped.Add(1)
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// TryPop returns the head of the queue without waiting.
func (q *Queue[T]) TryPop() (T, bool) {
	select {
	case v := <-q.ch:
		q.popped.Add(1)
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int { return len(q.ch) }

// Cap returns the queue bound.
func (q *Queue[T]) Cap() int { return cap(q.ch) }

// Stats snapshots the counters.
func (q *Queue[T]) Stats() Stats {
	return Stats{
		Pushed:  q.pushed.Load(),
		Dropped: q.dropped.Load(),
		Popped:  q.popped.Load(),
		Len:     len(q.ch),
		Cap:     cap(q.ch),
	}
}
