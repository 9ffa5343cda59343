package jsonl

import (
	"errors"
	"fmt"
)

// ErrorPolicy controls how a pipeline reacts to individual record
// failures. It never applies to structural corruption of the output file,
// which is always fatal.
type ErrorPolicy string

const (
	// Raise collects every per-record failure and, after all successful
	// records have been durably appended, returns one aggregate error
	// describing them.
	Raise ErrorPolicy = "raise"

	// Print logs each per-record failure and omits that record from the
	// output, letting the run complete for all other records.
	Print ErrorPolicy = "print"
)

// ErrUnexpectedKey marks structural corruption: an audited output file
// contains a key value outside the expected set. The file no longer
// matches its schema and resumption would be unsound.
var ErrUnexpectedKey = errors.New("unexpected key in output file")

// ItemError attaches the record key to the failure of a single pipeline
// item.
type ItemError struct {
	Key any
	Err error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("key %v: %v", e.Key, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// aggregate joins per-item failures into the single error returned by a
// Raise-policy run. Successful records are already on disk by the time
// this is constructed.
func aggregate(failed []error, total int) error {
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d records failed: %w", len(failed), total, errors.Join(failed...))
}
