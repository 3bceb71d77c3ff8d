package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"tramway-server/internal/domain/layout"
	"tramway-server/internal/infrastructure/metrics"
	"tramway-server/internal/infrastructure/queue"
)

// Worker processes layout recompute tasks from the queue.
type Worker struct {
	id            int
	queue         queue.TaskQueue
	layoutService *layout.Service
	taskTimeout   time.Duration
	log           zerolog.Logger
	stopChan      chan struct{}
}

// NewWorker creates a new background worker.
func NewWorker(
	id int,
	queue queue.TaskQueue,
	layoutService *layout.Service,
	taskTimeout time.Duration,
	log zerolog.Logger,
) *Worker {
	return &Worker{
		id:            id,
		queue:         queue,
		layoutService: layoutService,
		taskTimeout:   taskTimeout,
		log:           log.With().Int("worker_id", id).Str("component", "worker").Logger(),
		stopChan:      make(chan struct{}),
	}
}

// Start begins processing tasks from the queue.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info().Msg("worker started")

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("worker stopped by context")
			return
		case <-w.stopChan:
			w.log.Info().Msg("worker stopped")
			return
		case <-ticker.C:
			w.processNextTask(ctx)
		}
	}
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	close(w.stopChan)
}

func (w *Worker) processNextTask(ctx context.Context) {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("failed to dequeue task")
		}
		return
	}

	if task == nil {
		return
	}

	w.log.Debug().
		Str("project_id", task.ProjectID).
		Msg("recomputing layout")

	taskCtx, cancel := context.WithTimeout(ctx, w.taskTimeout)
	defer cancel()

	start := time.Now()
	if err := w.layoutService.Recompute(taskCtx, task.ProjectID); err != nil {
		metrics.RecordLayoutRecompute("error", time.Since(start).Seconds())
		w.log.Error().Err(err).Str("project_id", task.ProjectID).Msg("layout recompute failed")
		return
	}

	metrics.RecordLayoutRecompute("ok", time.Since(start).Seconds())
	w.log.Debug().Str("project_id", task.ProjectID).Msg("layout recompute completed")
}
