package app

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/itemhub/action-analytics/internal/cache"
	"github.com/itemhub/action-analytics/internal/errors"
)

// StartExportWorkers launches background workers that consume export tasks
// from the queue. If too many workers are configured, the number is limited
// based on available CPU cores.
func (app *App) StartExportWorkers(ctx context.Context) {
	numWorkers := app.Config.Export.Workers
	if numWorkers <= 0 {
		numWorkers = 4
	}

	maxWorkers := runtime.NumCPU() * 2
	if numWorkers > maxWorkers {
		numWorkers = maxWorkers
	}

	app.log.InfoContext(ctx, "starting export workers", slog.Int("count", numWorkers))

	for i := 0; i < numWorkers; i++ {
		go app.exportWorker(ctx, i+1)
	}
}

func (app *App) exportWorker(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			app.log.InfoContext(ctx, "export worker shutting down", slog.Int("worker", workerID))
			return
		default:
			task, err := app.Cache.PopExportTask(ctx)
			if err != nil {
				if !errors.Is(err, cache.ErrQueueEmpty) {
					app.log.ErrorContext(ctx, "export queue read failed",
						slog.Int("worker", workerID), slog.Any("error", err))
					time.Sleep(time.Second)
				}
				continue
			}

			start := time.Now()
			if err := app.Export.GenerateExport(ctx, task); err != nil {
				// Generation errors never reach the original caller; the
				// empty-dataset case is expected and logged quieter.
				if errors.IsEmptyDataset(err) {
					app.log.InfoContext(ctx, "export skipped, no actions",
						slog.Int("worker", workerID),
						slog.String("task", task.TaskID))
				} else {
					app.log.ErrorContext(ctx, "export task failed",
						slog.Int("worker", workerID),
						slog.String("task", task.TaskID),
						slog.Any("error", err))
				}
				continue
			}

			app.log.InfoContext(ctx, "export task done",
				slog.Int("worker", workerID),
				slog.String("task", task.TaskID),
				slog.Duration("took", time.Since(start)))
		}
	}
}
