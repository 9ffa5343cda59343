// Package pool provides a small, generic, bounded-concurrency executor
// for lazily-produced streams of tasks.
//
// The primary entry point is RunBounded, which takes a lazy sequence of
// tasks and a concurrency limit, runs at most limit tasks at a time, and
// yields outcomes in completion order. The source sequence is advanced in
// lockstep with slot availability, so a source that is expensive to
// advance (for example, one that reads a large file line by line) is never
// read further ahead than the limit allows.
//
// # Basic Usage
//
//	tasks := func(yield func(pool.Task[int]) bool) {
//	    for _, line := range lines {
//	        if !yield(makeTask(line)) {
//	            return
//	        }
//	    }
//	}
//	for out := range pool.RunBounded(ctx, tasks, 10) {
//	    value, err := out.Unwrap()
//	    // handle value or err
//	}
//
// # Error Handling
//
// A task returning an error does not stop the run: its failure is captured
// in the task's Outcome and delivered like any other result. Panics inside
// a task are recovered and converted to errors with stack traces, so a
// single bad task cannot crash the executor. Consumers decide what to do
// with each failure.
//
// # Cancellation
//
// Breaking out of the consuming loop (or cancelling the supplied context)
// stops the executor: tasks that have not started are abandoned, tasks
// already running finish normally, and all internal goroutines exit.
//
// # Configuration Options
//
//   - WithRateLimit(tasksPerSecond, burst): throttle task starts
//   - WithRetryPolicy(maxAttempts, initialDelay): retry failed tasks with
//     exponential backoff
//   - WithJitter(factor): randomize retry delays to avoid synchronized
//     retries
package pool
