package pool

import "context"

// Task is a deferred unit of work. It is not executed until a worker
// invokes it, and it is invoked at most once. The context is the
// executor's run context; tasks that block should honor its cancellation.
//
// Type parameters:
//   - R: The result type produced by the task
type Task[R any] func(ctx context.Context) (R, error)

// Outcome is the tagged result of exactly one Task: either a value or a
// captured failure. Exactly one Outcome is produced per task that the
// executor admits.
//
// Fields:
//   - Value: The result produced by the task (only meaningful if Err is nil)
//   - Err: The failure captured while running the task (nil on success)
type Outcome[R any] struct {
	Value R
	Err   error
}

// Ok reports whether the task completed without error.
func (o Outcome[R]) Ok() bool {
	return o.Err == nil
}

// Unwrap returns the outcome's value and error, in the usual Go shape.
func (o Outcome[R]) Unwrap() (R, error) {
	return o.Value, o.Err
}
