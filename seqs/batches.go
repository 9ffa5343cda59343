// Package seqs provides batching over lazy sequences.
package seqs

import (
	"fmt"
	"iter"
)

// Batches chunks epochs passes over src into slices of size items.
//
// The epochs are treated as one continuous stream: a leftover shorter
// than size at the end of one pass is completed by items from the next,
// and only the very last batch may be short. A source that can only be
// iterated once (it yields nothing on the second pass) ends iteration
// cleanly after one epoch. A later pass that yields a different non-zero
// number of items than the first is reported as an error, since batches
// would silently misalign.
//
// The consumer owns each yielded slice.
func Batches[T any](src iter.Seq[T], size, epochs int) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		if size < 1 {
			yield(nil, fmt.Errorf("batch size must be positive, got %d", size))
			return
		}
		if epochs < 1 {
			yield(nil, fmt.Errorf("epochs must be positive, got %d", epochs))
			return
		}

		var batch []T
		perEpoch := -1

		for epoch := range epochs {
			n := 0
			for item := range src {
				n++
				batch = append(batch, item)
				if len(batch) == size {
					if !yield(batch, nil) {
						return
					}
					batch = nil
				}
			}

			if epoch == 0 {
				perEpoch = n
				continue
			}
			if n == 0 {
				// Single-use source, exhausted after the first pass.
				break
			}
			if n != perEpoch {
				yield(nil, fmt.Errorf("source yielded %d items on pass %d, expected %d", n, epoch+1, perEpoch))
				return
			}
		}

		if len(batch) > 0 {
			yield(batch, nil)
		}
	}
}

// Of adapts a slice into a re-iterable sequence, the shape Batches
// expects for multi-epoch use.
func Of[T any](items []T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range items {
			if !yield(item) {
				return
			}
		}
	}
}
