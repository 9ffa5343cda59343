package pool

import "iter"

// Tasks adapts a slice of tasks into the lazy sequence RunBounded consumes.
func Tasks[R any](tasks []Task[R]) iter.Seq[Task[R]] {
	return func(yield func(Task[R]) bool) {
		for _, task := range tasks {
			if !yield(task) {
				return
			}
		}
	}
}

// Collect drains an outcome sequence into a slice.
func Collect[R any](outcomes iter.Seq[Outcome[R]]) []Outcome[R] {
	var all []Outcome[R]
	for out := range outcomes {
		all = append(all, out)
	}
	return all
}

// Values drains an outcome sequence, splitting successes from failures.
func Values[R any](outcomes iter.Seq[Outcome[R]]) ([]R, []error) {
	var values []R
	var errs []error
	for out := range outcomes {
		if out.Err != nil {
			errs = append(errs, out.Err)
			continue
		}
		values = append(values, out.Value)
	}
	return values, errs
}
