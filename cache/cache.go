// Package cache memoizes computation results on disk.
//
// A cache record is a JSON object mapping result names to values, stored
// at a caller-chosen path. The first call for a path runs the supplied
// computation and persists what it returns; later calls restore the
// persisted values without running the computation at all. A failed
// computation persists nothing, so the record is either complete or
// absent, never partial.
//
// Values round-trip through JSON, so restored values carry encoding/json
// dynamic types (string, float64, bool, nil, []any, map[string]any).
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Do memoizes a computation that binds the given result names.
//
// If path already holds a cache record, the record is decoded and
// returned and compute is not invoked. Otherwise compute runs; it must
// return a value for every requested name (extra entries are dropped).
// The named results are then written to path atomically (temp file plus
// rename), so a crash mid-write never leaves a partial record.
func Do(ctx context.Context, path string, names []string, compute func(context.Context) (map[string]any, error)) (map[string]any, error) {
	stored, err := load(path, names)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	results, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	record := make(map[string]any, len(names))
	for _, name := range names {
		value, ok := results[name]
		if !ok {
			return nil, fmt.Errorf("cache %s: computation did not bind %q", path, name)
		}
		record[name] = value
	}

	if err := write(path, record); err != nil {
		return nil, err
	}
	return record, nil
}

// One memoizes a single-value computation, using the same on-disk record
// format as Do with one result named "value".
func One[T any](ctx context.Context, path string, compute func(context.Context) (T, error)) (T, error) {
	var zero T

	raw, err := os.ReadFile(path)
	if err == nil {
		var envelope struct {
			Value T `json:"value"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return zero, fmt.Errorf("cache %s: %w", path, err)
		}
		return envelope.Value, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return zero, err
	}

	value, err := compute(ctx)
	if err != nil {
		return zero, err
	}

	if err := write(path, map[string]any{"value": value}); err != nil {
		return zero, err
	}
	return value, nil
}

// Invalidate deletes the cache record at path. A missing record is not
// an error.
func Invalidate(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func load(path string, names []string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("cache %s: %w", path, err)
	}

	for _, name := range names {
		if _, ok := record[name]; !ok {
			return nil, fmt.Errorf("cache %s: stored record is missing %q", path, name)
		}
	}
	return record, nil
}

func write(path string, record map[string]any) error {
	b, err := json.Marshal(record)
	if err != nil {
		return err
	}

	tmp := fmt.Sprintf("%s.tmp-%s", path, uuid.NewString())
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
