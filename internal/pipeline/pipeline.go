// Package pipeline is a minimal dataflow scheduler. A Task is one unit of
// work with a lazily resolved input and a stored result; a sequence is an
// ordered list of tasks where a later task's input function may read the
// results of tasks that ran before it. This is how multi-step fetches are
// composed into a single output without duplicating fetch logic.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/itemhub/action-analytics/internal/errors"
)

// Status is a task's lifecycle state.
type Status string

const (
	StatusNew     Status = "NEW"
	StatusRunning Status = "RUNNING"
	StatusOK      Status = "OK"
	StatusFailed  Status = "FAILED"
	StatusSkipped Status = "SKIPPED"
)

// Task is a unit of work executed against its own short-lived transaction.
//
// Input is read as-is when InputFn is nil; otherwise InputFn is evaluated
// immediately before the task runs, so it may read the Result of any task
// that already ran in the same sequence. ResultFn, when set, replaces the
// stored Result as the task's output and is evaluated lazily after the
// sequence completes; the final task of a sequence uses it to synthesize a
// composite value out of its siblings' results.
type Task struct {
	Name   string
	Status Status

	Input   any
	InputFn func() (any, error)

	// SkipFn declares the task a no-op without failing the sequence.
	// Evaluated after the input is resolved.
	SkipFn func(input any) bool

	// NoTx runs the task without a database transaction. Used by tasks that
	// only touch local state.
	NoTx bool

	Run func(ctx context.Context, tx pgx.Tx, input any) (any, error)

	Result   any
	ResultFn func() any
}

// Output returns the task's effective result.
func (t *Task) Output() any {
	if t.ResultFn != nil {
		return t.ResultFn()
	}
	return t.Result
}

// NewTask builds a task in the NEW state.
func NewTask(name string, run func(ctx context.Context, tx pgx.Tx, input any) (any, error)) *Task {
	return &Task{Name: name, Status: StatusNew, Run: run}
}

// Runner executes tasks and sequences. Each task's work runs inside its own
// transaction; the runner holds no locks across tasks and performs no
// compensating rollback when a later task fails.
type Runner struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewRunner builds a runner. pool may be nil for runners that only execute
// NoTx tasks (used by tests and by stores faked behind interfaces).
func NewRunner(pool *pgxpool.Pool, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{pool: pool, log: log}
}

// RunSingle executes one task and returns its output.
func (r *Runner) RunSingle(ctx context.Context, t *Task) (any, error) {
	if err := r.run(ctx, t); err != nil {
		return nil, err
	}
	return t.Output(), nil
}

// RunSequence executes tasks strictly in order and returns the last task's
// output. The sequence aborts at the first failure; side effects of tasks
// that already committed are left in place.
func (r *Runner) RunSequence(ctx context.Context, tasks ...*Task) (any, error) {
	if len(tasks) == 0 {
		return nil, errors.New("empty task sequence")
	}
	for _, t := range tasks {
		if err := r.run(ctx, t); err != nil {
			return nil, err
		}
	}
	return tasks[len(tasks)-1].Output(), nil
}

func (r *Runner) run(ctx context.Context, t *Task) error {
	input := t.Input
	if t.InputFn != nil {
		var err error
		input, err = t.InputFn()
		if err != nil {
			t.Status = StatusFailed
			return err
		}
	}

	if t.SkipFn != nil && t.SkipFn(input) {
		t.Status = StatusSkipped
		return nil
	}

	t.Status = StatusRunning

	var tx pgx.Tx
	if !t.NoTx && r.pool != nil {
		var err error
		tx, err = r.pool.Begin(ctx)
		if err != nil {
			t.Status = StatusFailed
			return errors.Internal("pipeline.begin_tx", err)
		}
	}

	result, err := t.Run(ctx, tx, input)
	if err != nil {
		if tx != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				r.log.Warn("pipeline.rollback_failed",
					slog.String("task", t.Name), slog.Any("error", rbErr))
			}
		}
		t.Status = StatusFailed
		return err
	}
	if tx != nil {
		if err := tx.Commit(ctx); err != nil {
			t.Status = StatusFailed
			return errors.Internal("pipeline.commit_tx", err)
		}
	}

	t.Result = result
	t.Status = StatusOK
	return nil
}
