package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tramway-server/internal/infrastructure/metrics"
)

// MemoryQueue is an in-process task queue. Recompute tasks are derived
// entirely from durable state, so losing them on restart costs nothing: the
// next layout read recomputes inline. Tasks are coalesced per project; a
// project already queued is not queued twice.
type MemoryQueue struct {
	mu      sync.Mutex
	tasks   chan *Task
	pending map[string]bool
}

// NewMemoryQueue creates a queue with a bounded buffer.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 256
	}
	return &MemoryQueue{
		tasks:   make(chan *Task, size),
		pending: make(map[string]bool),
	}
}

// Enqueue adds a task, dropping duplicates for projects already queued.
func (q *MemoryQueue) Enqueue(ctx context.Context, task *Task) error {
	q.mu.Lock()
	if q.pending[task.ProjectID] {
		q.mu.Unlock()
		return nil
	}
	q.pending[task.ProjectID] = true
	q.mu.Unlock()

	if task.QueuedAt.IsZero() {
		task.QueuedAt = time.Now()
	}

	select {
	case q.tasks <- task:
		metrics.SetQueueDepth(len(q.tasks))
		return nil
	default:
		q.mu.Lock()
		delete(q.pending, task.ProjectID)
		q.mu.Unlock()
		return fmt.Errorf("queue: buffer full, dropping recompute for project %s", task.ProjectID)
	}
}

// Dequeue returns the next task or nil when none is waiting.
func (q *MemoryQueue) Dequeue(ctx context.Context) (*Task, error) {
	select {
	case task := <-q.tasks:
		q.mu.Lock()
		delete(q.pending, task.ProjectID)
		q.mu.Unlock()
		metrics.SetQueueDepth(len(q.tasks))
		return task, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		return nil, nil
	}
}

// GetQueueDepth returns the number of queued tasks.
func (q *MemoryQueue) GetQueueDepth(ctx context.Context) (int64, error) {
	return int64(len(q.tasks)), nil
}

var _ TaskQueue = (*MemoryQueue)(nil)
