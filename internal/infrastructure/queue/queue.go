// Package queue feeds layout recompute tasks to the background workers.
package queue

import (
	"context"
	"time"
)

// Task represents a layout recompute request for one project.
type Task struct {
	ProjectID string
	QueuedAt  time.Time
}

// TaskQueue defines the interface for task queue operations.
type TaskQueue interface {
	// Enqueue adds a task to the queue
	Enqueue(ctx context.Context, task *Task) error

	// Dequeue fetches the next available task, nil when the queue is empty
	Dequeue(ctx context.Context) (*Task, error)

	// GetQueueDepth returns the number of queued tasks
	GetQueueDepth(ctx context.Context) (int64, error)
}
