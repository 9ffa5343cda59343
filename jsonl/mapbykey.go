package jsonl

import (
	"context"
	"fmt"
	"iter"
	"os"

	"github.com/arjunguha/batchkit/pool"
)

// Transform maps one input record to one output record. It runs inside
// the bounded executor and may block; it should honor ctx cancellation.
type Transform func(ctx context.Context, rec Record) (Record, error)

// MapByKey transforms every record in inputPath exactly once, appending
// results to outputPath. The key field identifies records across runs:
// keys already present in the output file are skipped, so re-running
// after a crash only processes the remainder, and repeated runs converge
// to exactly one output record per input key.
//
// The written record is the transform's result merged with the input
// fields named in keepColumns plus the key field; the transform's fields
// win on conflict. Records are appended in completion order as their
// outcomes arrive, so output order is not input order and may differ
// between runs.
//
// Per-record transform failures follow onError (see ErrorPolicy); the
// failure of one key never affects unrelated keys, and everything that
// succeeded before an aggregate error is already on disk.
func MapByKey(ctx context.Context, inputPath, outputPath string, fn Transform, keyField string, keepColumns []string, numConcurrent int, onError ErrorPolicy, opts ...PipelineOption) error {
	cfg := newPipelineConfig(opts...)

	done, err := auditKeys(outputPath, keyField)
	if err != nil {
		return err
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	// The input is streamed: the task source decodes one line at a time
	// as the executor frees admission slots. A read failure stops
	// admission and surfaces after in-flight work drains.
	var readErr error
	var tasks iter.Seq[pool.Task[Record]] = func(yield func(pool.Task[Record]) bool) {
		for rec, err := range Records(in) {
			if err != nil {
				readErr = fmt.Errorf("read %s: %w", inputPath, err)
				return
			}

			key, err := keyOf(rec, keyField)
			if err != nil {
				readErr = fmt.Errorf("read %s: %w", inputPath, err)
				return
			}

			if _, seen := done[key]; seen {
				cfg.logger.Debug().Interface("key", key).Msg("already mapped, skipping")
				continue
			}
			done[key] = struct{}{}

			if !yield(mapTask(fn, rec, key, keyField, keepColumns)) {
				return
			}
		}
	}

	w, err := openAppend(outputPath)
	if err != nil {
		return err
	}
	defer w.Close()

	var failed []error
	total := 0
	for out := range pool.RunBounded(ctx, tasks, numConcurrent) {
		total++
		rec, err := out.Unwrap()
		if err != nil {
			if onError == Print {
				cfg.logger.Error().Err(err).Str("path", outputPath).Msg("transform failed")
			} else {
				failed = append(failed, err)
			}
			continue
		}

		if err := w.Write(rec); err != nil {
			return fmt.Errorf("append %s: %w", outputPath, err)
		}
	}

	if readErr != nil {
		return readErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return aggregate(failed, total)
}

// mapTask builds the deferred operation for one input record: run the
// transform, then merge kept input columns under the transform's fields.
func mapTask(fn Transform, rec Record, key any, keyField string, keepColumns []string) pool.Task[Record] {
	return func(ctx context.Context) (Record, error) {
		result, err := fn(ctx, rec)
		if err != nil {
			return nil, &ItemError{Key: key, Err: err}
		}

		merged := make(Record, len(result)+len(keepColumns)+1)
		for _, col := range keepColumns {
			if v, ok := rec[col]; ok {
				merged[col] = v
			}
		}
		merged[keyField] = key
		for k, v := range result {
			merged[k] = v
		}
		return merged, nil
	}
}
