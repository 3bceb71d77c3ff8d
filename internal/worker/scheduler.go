package worker

import (
	"context"

	"tramway-server/internal/domain/layout"
	"tramway-server/internal/infrastructure/queue"
)

// Scheduler marks a project's placements stale and queues the background
// recompute. Handlers call it after every tree mutation.
type Scheduler struct {
	queue   queue.TaskQueue
	layouts *layout.Service
}

// NewScheduler wires dependencies.
func NewScheduler(queue queue.TaskQueue, layouts *layout.Service) *Scheduler {
	return &Scheduler{queue: queue, layouts: layouts}
}

// EnqueueRecompute schedules a layout recompute for one project.
func (s *Scheduler) EnqueueRecompute(ctx context.Context, projectID string) error {
	s.layouts.MarkProjectStale(ctx, projectID)
	return s.queue.Enqueue(ctx, &queue.Task{ProjectID: projectID})
}
