package cache

import (
	"context"
	"errors"
	"time"

	"github.com/itemhub/action-analytics/internal/model"
)

// ErrQueueEmpty is returned by PopExportTask when no task arrived within the
// blocking window.
var ErrQueueEmpty = errors.New("queue empty (timeout)")

// Cache is the export work queue plus the in-flight marks that narrow the
// window for duplicate generation of the same archive.
type Cache interface {
	PushExportTask(ctx context.Context, task model.ExportTask) error
	// PopExportTask blocks briefly and returns ErrQueueEmpty on timeout.
	PopExportTask(ctx context.Context) (model.ExportTask, error)

	// MarkExportInFlight sets the task key if absent and reports whether this
	// caller won the mark.
	MarkExportInFlight(ctx context.Context, taskID string, ttl time.Duration) (bool, error)
	ClearExportInFlight(ctx context.Context, taskID string) error

	Close() error
}
