package ensemble

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of concurrent work with a name for reporting.
type Task[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Settled is the outcome of a Task once it finished, failed or timed out.
type Settled[T any] struct {
	Name    string
	Value   T
	Err     error
	Latency time.Duration
}

// RunAll runs tasks with at most limit in flight and waits for every one
// to settle. A failing or panicking task never cancels its siblings. A task
// still running when the deadline passes settles with the context error.
// Results keep task order.
func RunAll[T any](ctx context.Context, timeout time.Duration, limit int, tasks []Task[T]) []Settled[T] {
	results := make([]Settled[T], len(tasks))
	if len(tasks) == 0 {
		return results
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			results[i] = settle(runCtx, task)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func settle[T any](ctx context.Context, task Task[T]) Settled[T] {
	start := time.Now()
	res := Settled[T]{Name: task.Name}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	done := make(chan Settled[T], 1)
	go func() {
		out := Settled[T]{Name: task.Name}
		defer func() {
			if r := recover(); r != nil {
				out.Err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
				done <- out
			}
		}()
		out.Value, out.Err = task.Run(ctx)
		done <- out
	}()

	select {
	case res = <-done:
	case <-ctx.Done():
		res.Err = ctx.Err()
	}
	res.Latency = time.Since(start)
	return res
}
