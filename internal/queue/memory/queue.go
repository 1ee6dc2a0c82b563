// Package memory provides the bounded in-memory batch queue used by the
// serve mode.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// BatchItem wraps a submitted batch ready to run.
type BatchItem struct {
	BatchID     uuid.UUID
	URLs        []string
	Concurrency int
	Submitted   int64
}

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan BatchItem
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan BatchItem, capacity),
	}
}

// Enqueue pushes a batch into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, item BatchItem) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- item:
		return nil
	}
}

// Dequeue pops the next batch, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (BatchItem, error) {
	select {
	case <-ctx.Done():
		return BatchItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case item, ok := <-q.ch:
		if !ok {
			return BatchItem{}, errors.New("queue closed")
		}
		return item, nil
	}
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
