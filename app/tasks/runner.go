package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/epgfetch/app/logger"
	"github.com/lysyi3m/epgfetch/app/metrics"
)

const DefaultTaskTimeout = 5 * time.Minute

var _ TaskRunnerInterface = (*Runner)(nil)

// Runner executes tasks one after another and stops at the first failure.
// There are no retries: a failed run is re-invoked by the external scheduler.
type Runner struct {
	runID       string
	recorder    *metrics.Recorder
	taskTimeout time.Duration
}

func NewRunner(recorder *metrics.Recorder) *Runner {
	return &Runner{
		runID:       uuid.NewString(),
		recorder:    recorder,
		taskTimeout: DefaultTaskTimeout,
	}
}

func (r *Runner) RunID() string {
	return r.runID
}

func (r *Runner) Run(ctx context.Context, tasks []TaskInterface) error {
	log := logger.FromContext(ctx).With("run_id", r.runID)
	log.Debug("Run started", "tasks", len(tasks))

	for i, task := range tasks {
		select {
		case <-ctx.Done():
			log.Warn("Run cancelled", "completed", i, "total", len(tasks))
			return ctx.Err()
		default:
		}

		if err := r.executeTask(ctx, log, task); err != nil {
			log.Error("Task execution failed",
				"type", string(task.GetType()),
				"id", task.GetID(),
				"target", task.GetTarget(),
				"error", err)

			if task.GetType() == TaskTypeSyncChannel {
				r.recorder.Channel(metrics.OutcomeFailed)
			}
			return err
		}
	}

	log.Debug("Run finished", "tasks", len(tasks))
	return nil
}

func (r *Runner) executeTask(ctx context.Context, log *slog.Logger, task TaskInterface) error {
	task.Start()

	taskCtx, cancel := context.WithTimeout(ctx, r.taskTimeout)
	defer cancel()

	taskCtx = logger.WithContext(taskCtx, log.With("task_id", task.GetID()))

	return task.Execute(taskCtx)
}
