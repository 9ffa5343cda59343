package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"os"
)

// Record is one JSONL row: a mapping from field name to JSON-compatible
// value. After decoding, values have the usual encoding/json dynamic
// types (string, float64, bool, nil, []any, map[string]any).
type Record map[string]any

// maxLineSize bounds a single JSONL line during scanning.
const maxLineSize = 16 * 1024 * 1024

// Records lazily decodes newline-delimited records from r. Iteration
// stops after the first decode or read error, which is yielded alongside
// a nil record. Blank lines are skipped.
func Records(r io.Reader) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		line := 0
		for scanner.Scan() {
			line++
			raw := scanner.Bytes()
			if len(raw) == 0 {
				continue
			}

			var rec Record
			if err := json.Unmarshal(raw, &rec); err != nil {
				yield(nil, fmt.Errorf("line %d: %w", line, err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// ReadAll decodes every record in the file at path. A missing file is
// treated as empty.
func ReadAll(path string) ([]Record, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var all []Record
	for rec, err := range Records(f) {
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		all = append(all, rec)
	}
	return all, nil
}

// appendWriter appends records to a JSONL file, one Write syscall per
// record (marshaled line plus trailing newline), so every completed
// record is durable before the next one starts.
type appendWriter struct {
	f *os.File
}

func openAppend(path string) (*appendWriter, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &appendWriter{f: f}, nil
}

func (w *appendWriter) Write(rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = w.f.Write(append(b, '\n'))
	return err
}

func (w *appendWriter) Close() error {
	return w.f.Close()
}
