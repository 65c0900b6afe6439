// Package orchestrator wires the scheduler, relational migrator, warehouse
// migrator, and dynamic job expander into the top-level run loop (C10).
// Grounded on internal/copy/engine.go's Engine.Copy (continue-on-error
// loop over tables) and
// original_source/mysql_migration/migrator.py's migrate_all (semaphore-
// bounded asyncio.gather over FK dependency levels).
package orchestrator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// TaskGroup bounds concurrent execution of a set of tasks by a weighted
// semaphore. It drives the orchestrator's own db/table-level fan-out; the
// object-store copier and the warehouse batch inserts bound their workers
// with their own errgroup and semaphore.
type TaskGroup struct {
	sem *semaphore.Weighted
	g   *errgroup.Group
	ctx context.Context
}

// NewTaskGroup builds a TaskGroup bounding concurrent Go calls at limit.
func NewTaskGroup(ctx context.Context, limit int) *TaskGroup {
	if limit <= 0 {
		limit = 1
	}
	return &TaskGroup{sem: semaphore.NewWeighted(int64(limit)), g: new(errgroup.Group), ctx: ctx}
}

// Go schedules fn to run once a slot is free. A task that panics is
// recovered and converted into an error so one bad task never takes down
// the whole group.
func (tg *TaskGroup) Go(fn func(ctx context.Context) error) {
	if err := tg.sem.Acquire(tg.ctx, 1); err != nil {
		return
	}
	tg.g.Go(func() (err error) {
		defer tg.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				err = panicError{recovered: r}
			}
		}()
		return fn(tg.ctx)
	})
}

// Wait blocks until every scheduled task has completed, returning the
// first non-nil error.
func (tg *TaskGroup) Wait() error {
	return tg.g.Wait()
}

// Context returns the context the group was built with. A task error does
// not cancel it, so the remaining tasks still run.
func (tg *TaskGroup) Context() context.Context {
	return tg.ctx
}

type panicError struct {
	recovered any
}

func (p panicError) Error() string {
	return fmt.Sprintf("recovered panic: %v", p.recovered)
}
