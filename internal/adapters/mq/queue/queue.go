// Package queue buffers submitted score records between the HTTP layer and
// the ingestion workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/irr/internal/domain/model"
	"github.com/okian/irr/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Item is the payload flowing through the queue.
type Item = model.ScoreRecord

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an item to the queue. It never blocks; the error tells
	// why an item was refused.
	Enqueue(ctx context.Context, it Item) error

	// Dequeue returns a channel that yields items until the queue is
	// closed and drained.
	Dequeue() <-chan Item

	// Len returns the current number of queued items.
	Len() int

	// Cap returns the queue capacity.
	Cap() int

	// Close stops new items. Items already queued can still be dequeued.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items    chan Item
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan Item, q.capacity)
	metrics.TrackIngestQueue(q.Len, q.capacity)
	return q
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, it Item) error { //nolint:gocritic // hugeParam: items are passed by value through the channel
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordIngestRejected("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordIngestRejected("context_cancelled")
		return err
	}

	select {
	case q.items <- it:
		metrics.RecordIngestEnqueued()
		return nil
	default:
		metrics.RecordIngestRejected("queue_full")
		return ErrFull
	}
}

// Dequeue implements Queue. Every caller receives from the same channel.
func (q *InMemoryQueue) Dequeue() <-chan Item {
	return q.items
}

// Len implements Queue.
func (q *InMemoryQueue) Len() int { return len(q.items) }

// Cap implements Queue.
func (q *InMemoryQueue) Cap() int { return q.capacity }

// Close implements Queue. Closing twice is a no-op.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
