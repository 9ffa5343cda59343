package jsonl

import (
	"context"
	"fmt"
	"iter"

	"github.com/arjunguha/batchkit/pool"
)

// Deficit names a key value that still needs Count more records.
type Deficit struct {
	Key   any
	Count int
}

// Generator turns the planned deficits into a lazy sequence of tasks,
// each producing one new record for one of the requested key values.
type Generator func(deficits []Deficit) iter.Seq[pool.Task[Record]]

// CreateOrResume brings the JSONL file at path to exactly perKey records
// for every key enumerated by keys, generating only what is missing.
//
// The existing file (if any) is audited first: records are counted per
// key value, and a record whose key is not in the expected set aborts the
// run with an error wrapping ErrUnexpectedKey, regardless of onError.
// The generator is then invoked with the positive deficits, in key
// enumeration order, and its tasks run through the bounded executor.
// Each successful record is appended and flushed as it completes, so an
// interrupted run leaves a valid file that the next call resumes from.
//
// Per-record generation failures follow onError: Raise appends every
// record that succeeded and then returns an aggregate error; Print logs
// each failure and continues.
//
// Running twice with the same inputs and an unchanged file performs no
// generation work on the second run.
func CreateOrResume(ctx context.Context, path, keyField string, perKey int, keys iter.Seq[any], gen Generator, onError ErrorPolicy, opts ...PipelineOption) error {
	cfg := newPipelineConfig(opts...)
	if perKey < 1 {
		return fmt.Errorf("create or resume %s: target count per key must be positive, got %d", path, perKey)
	}

	var ordered []any
	expected := make(map[any]struct{})
	for key := range keys {
		if _, dup := expected[key]; !dup {
			ordered = append(ordered, key)
			expected[key] = struct{}{}
		}
	}

	counts, err := auditCounts(path, keyField, expected)
	if err != nil {
		return err
	}

	var deficits []Deficit
	for _, key := range ordered {
		if missing := perKey - counts[key]; missing > 0 {
			deficits = append(deficits, Deficit{Key: key, Count: missing})
		}
	}

	if len(deficits) == 0 {
		cfg.logger.Debug().Str("path", path).Msg("all keys at target count, nothing to generate")
		return nil
	}

	cfg.logger.Info().
		Str("path", path).
		Int("keys", len(deficits)).
		Msg("generating missing records")

	w, err := openAppend(path)
	if err != nil {
		return err
	}
	defer w.Close()

	var failed []error
	total := 0
	for out := range pool.RunBounded(ctx, gen(deficits), cfg.concurrency) {
		total++
		rec, err := out.Unwrap()
		if err != nil {
			if onError == Print {
				cfg.logger.Error().Err(err).Str("path", path).Msg("record generation failed")
			} else {
				failed = append(failed, err)
			}
			continue
		}

		if err := w.Write(rec); err != nil {
			return fmt.Errorf("append %s: %w", path, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return aggregate(failed, total)
}
