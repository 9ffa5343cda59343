package jsonl

import (
	"fmt"
	"os"
)

// keyOf extracts the key field from a record. A record without the key
// field is structurally corrupt relative to the pipeline's schema.
func keyOf(rec Record, keyField string) (any, error) {
	key, ok := rec[keyField]
	if !ok {
		return nil, fmt.Errorf("%w: record missing key field %q", ErrUnexpectedKey, keyField)
	}
	return key, nil
}

// auditCounts reads the whole output file and counts records per key
// value. A key outside expected is fatal corruption. A missing file is
// an empty audit.
func auditCounts(path, keyField string, expected map[any]struct{}) (map[any]int, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return map[any]int{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	counts := make(map[any]int)
	for rec, err := range Records(f) {
		if err != nil {
			return nil, fmt.Errorf("audit %s: %w", path, err)
		}

		key, err := keyOf(rec, keyField)
		if err != nil {
			return nil, fmt.Errorf("audit %s: %w", path, err)
		}

		if _, ok := expected[key]; !ok {
			return nil, fmt.Errorf("audit %s: %w: %v", path, ErrUnexpectedKey, key)
		}
		counts[key]++
	}
	return counts, nil
}

// auditKeys reads the output file and collects the set of keys already
// written. A missing file is an empty audit.
func auditKeys(path, keyField string) (map[any]struct{}, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return map[any]struct{}{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	done := make(map[any]struct{})
	for rec, err := range Records(f) {
		if err != nil {
			return nil, fmt.Errorf("audit %s: %w", path, err)
		}

		key, err := keyOf(rec, keyField)
		if err != nil {
			return nil, fmt.Errorf("audit %s: %w", path, err)
		}
		done[key] = struct{}{}
	}
	return done, nil
}
