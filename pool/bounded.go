package pool

import (
	"context"
	"fmt"
	"iter"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// RunBounded executes a lazily-produced sequence of tasks with at most
// limit tasks in flight at a time, and returns a lazy sequence of their
// outcomes in completion order.
//
// Admission is strictly bounded: a slot is taken before the source is
// advanced, so at any instant (tasks queued + tasks executing) <= limit,
// and the source is never read ahead of slot availability. The returned
// sequence ends exactly when the source is exhausted and every in-flight
// task has completed.
//
// A failing task does not abort the run; its failure is delivered as an
// Outcome. Breaking out of the consuming loop abandons tasks that have
// not started and lets running tasks finish. The returned sequence is
// single-use: ranging it a second time starts a new run over the source.
//
// Parameters:
//   - ctx: Context for the whole run; cancelling it stops admission
//   - tasks: Lazy source of tasks; advanced only when a slot is free
//   - limit: Maximum number of tasks in flight (values < 1 are treated as 1)
//   - opts: Optional rate limiting and retry configuration
func RunBounded[R any](ctx context.Context, tasks iter.Seq[Task[R]], limit int, opts ...Option) iter.Seq[Outcome[R]] {
	cfg := newConfig(opts...)
	if limit < 1 {
		limit = 1
	}

	return func(yield func(Outcome[R]) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		// Admission slots: the producer takes one before advancing the
		// source, a worker gives it back after publishing the outcome.
		slots := semaphore.NewWeighted(int64(limit))
		taskCh := make(chan Task[R])
		resultCh := make(chan Outcome[R], limit)

		go produce(ctx, tasks, slots, taskCh)

		var wg sync.WaitGroup
		for range limit {
			wg.Add(1)
			go func() {
				defer wg.Done()
				work(ctx, cfg, slots, taskCh, resultCh)
			}()
		}

		// Close the result stream once all workers have drained.
		go func() {
			wg.Wait()
			close(resultCh)
		}()

		for out := range resultCh {
			if !yield(out) {
				return
			}
		}
	}
}

// produce advances the task source in lockstep with slot availability and
// hands tasks to workers. The task channel is unbuffered: a pulled task
// is either in the producer's hand (holding its slot) or with a worker.
func produce[R any](ctx context.Context, tasks iter.Seq[Task[R]], slots *semaphore.Weighted, taskCh chan<- Task[R]) {
	defer close(taskCh)

	next, stop := iter.Pull(tasks)
	defer stop()

	for {
		if err := slots.Acquire(ctx, 1); err != nil {
			return
		}

		task, ok := next()
		if !ok {
			slots.Release(1)
			return
		}

		select {
		case taskCh <- task:
		case <-ctx.Done():
			slots.Release(1)
			return
		}
	}
}

// work is the worker loop: take a task, run it, publish its outcome,
// release the admission slot.
func work[R any](ctx context.Context, cfg *config, slots *semaphore.Weighted, taskCh <-chan Task[R], resultCh chan<- Outcome[R]) {
	for {
		select {
		case task, ok := <-taskCh:
			if !ok {
				return
			}

			out := execute(ctx, cfg, task)

			select {
			case resultCh <- out:
				slots.Release(1)
			case <-ctx.Done():
				slots.Release(1)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// execute runs a single task with rate limiting, panic recovery, and retry.
// A panic is converted to an error so one bad task cannot crash a worker.
func execute[R any](ctx context.Context, cfg *config, task Task[R]) (out Outcome[R]) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			out = Outcome[R]{Err: fmt.Errorf("task panic: %v\nstack trace:\n%s", r, buf[:n])}
		}
	}()

	if cfg.rateLimiter != nil {
		if err := cfg.rateLimiter.Wait(ctx); err != nil {
			return Outcome[R]{Err: err}
		}
	}

	maxAttempts := max(cfg.maxAttempts, 1)

	var value R
	var err error
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-time.After(cfg.backoff.NextDelay(attempt - 1)):
			case <-ctx.Done():
				return Outcome[R]{Err: ctx.Err()}
			}
		}

		value, err = task(ctx)
		if err == nil {
			return Outcome[R]{Value: value}
		}
	}

	return Outcome[R]{Err: err}
}
