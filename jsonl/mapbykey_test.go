package jsonl

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

// multiset canonicalizes records for order-independent comparison.
// json.Marshal sorts map keys, so equal records marshal identically.
func multiset(t *testing.T, recs []Record) []string {
	t.Helper()

	out := make([]string, 0, len(recs))
	for _, rec := range recs {
		b, err := json.Marshal(rec)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, string(b))
	}
	sort.Strings(out)
	return out
}

func addOne(ctx context.Context, rec Record) (Record, error) {
	return Record{"result": rec["key"].(float64) + 1}, nil
}

func TestMapByKey_MapsEveryRecord(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.jsonl")
	out := filepath.Join(dir, "out.jsonl")
	writeLines(t, in,
		`{"key": 10, "other": "x"}`,
		`{"key": 20, "other": "y"}`,
	)

	err := MapByKey(context.Background(), in, out, addOne, "key", []string{"other"}, 2, Raise, quiet())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	recs, err := ReadAll(out)
	if err != nil {
		t.Fatal(err)
	}

	want := multiset(t, []Record{
		{"result": float64(11), "key": float64(10), "other": "x"},
		{"result": float64(21), "key": float64(20), "other": "y"},
	})
	got := multiset(t, recs)

	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record mismatch:\n  got  %s\n  want %s", got[i], want[i])
		}
	}
}

func TestMapByKey_ConcurrentMatchesSequential(t *testing.T) {
	// Key 10's task waits for key 20's completion, forcing completion
	// order to differ from input order; the output multiset must still
	// match a non-concurrent run.
	dir := t.TempDir()
	in := filepath.Join(dir, "in.jsonl")
	out := filepath.Join(dir, "out.jsonl")
	writeLines(t, in,
		`{"key": 10, "other": "x"}`,
		`{"key": 20, "other": "y"}`,
	)

	twentyDone := make(chan struct{})
	fn := func(ctx context.Context, rec Record) (Record, error) {
		key := rec["key"].(float64)
		if key == 10 {
			<-twentyDone
			// Leave time for key 20's record to be appended.
			time.Sleep(50 * time.Millisecond)
		} else {
			close(twentyDone)
		}
		return Record{"result": key + 1}, nil
	}

	err := MapByKey(context.Background(), in, out, fn, "key", []string{"other"}, 2, Raise, quiet())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	recs, err := ReadAll(out)
	if err != nil {
		t.Fatal(err)
	}

	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0]["key"] != float64(20) {
		t.Errorf("expected key 20's record to be appended first, got %v", recs[0])
	}

	want := multiset(t, []Record{
		{"result": float64(11), "key": float64(10), "other": "x"},
		{"result": float64(21), "key": float64(20), "other": "y"},
	})
	got := multiset(t, recs)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record mismatch:\n  got  %s\n  want %s", got[i], want[i])
		}
	}
}

func TestMapByKey_SkipsAlreadyMappedKeys(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.jsonl")
	out := filepath.Join(dir, "out.jsonl")
	writeLines(t, in,
		`{"key": 1}`,
		`{"key": 2}`,
		`{"key": 3}`,
	)
	// Key 2 is already done from a previous run.
	writeLines(t, out, `{"key": 2, "result": 3}`)

	var calls atomic.Int32
	seen := make(map[float64]*atomic.Int32)
	for _, k := range []float64{1, 2, 3} {
		seen[k] = &atomic.Int32{}
	}

	fn := func(ctx context.Context, rec Record) (Record, error) {
		calls.Add(1)
		key := rec["key"].(float64)
		seen[key].Add(1)
		return Record{"result": key + 1}, nil
	}

	err := MapByKey(context.Background(), in, out, fn, "key", nil, 2, Raise, quiet())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls.Load() != 2 {
		t.Errorf("expected 2 transform calls, got %d", calls.Load())
	}
	if seen[2].Load() != 0 {
		t.Error("transform ran for a key that was already mapped")
	}
	if seen[1].Load() != 1 || seen[3].Load() != 1 {
		t.Error("expected remaining keys to be transformed exactly once")
	}

	recs, err := ReadAll(out)
	if err != nil {
		t.Fatal(err)
	}

	want := multiset(t, []Record{
		{"key": float64(2), "result": float64(3)},
		{"key": float64(1), "result": float64(2)},
		{"key": float64(3), "result": float64(4)},
	})
	got := multiset(t, recs)
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record mismatch:\n  got  %s\n  want %s", got[i], want[i])
		}
	}
}

func TestMapByKey_RepeatedRunsConverge(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.jsonl")
	out := filepath.Join(dir, "out.jsonl")
	writeLines(t, in, `{"key": 1}`, `{"key": 2}`)

	var calls atomic.Int32
	fn := func(ctx context.Context, rec Record) (Record, error) {
		calls.Add(1)
		return Record{"result": "done"}, nil
	}

	for run := 0; run < 3; run++ {
		if err := MapByKey(context.Background(), in, out, fn, "key", nil, 2, Raise, quiet()); err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
	}

	if calls.Load() != 2 {
		t.Errorf("expected 2 total transform calls across runs, got %d", calls.Load())
	}

	recs, err := ReadAll(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Errorf("expected exactly one output record per input key, got %d", len(recs))
	}
}

func TestMapByKey_DuplicateInputKeysMappedOnce(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.jsonl")
	out := filepath.Join(dir, "out.jsonl")
	writeLines(t, in, `{"key": "a"}`, `{"key": "a"}`, `{"key": "b"}`)

	var calls atomic.Int32
	fn := func(ctx context.Context, rec Record) (Record, error) {
		calls.Add(1)
		return Record{"ok": true}, nil
	}

	if err := MapByKey(context.Background(), in, out, fn, "key", nil, 1, Raise, quiet()); err != nil {
		t.Fatal(err)
	}

	if calls.Load() != 2 {
		t.Errorf("expected duplicate key to be transformed once, got %d calls", calls.Load())
	}
}

func TestMapByKey_RaisePreservesPartialProgress(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.jsonl")
	out := filepath.Join(dir, "out.jsonl")
	writeLines(t, in, `{"key": "k1"}`, `{"key": "k2"}`, `{"key": "k3"}`)

	boom := errors.New("boom")
	fn := func(ctx context.Context, rec Record) (Record, error) {
		if rec["key"] == "k2" {
			return nil, boom
		}
		return Record{"result": "ok"}, nil
	}

	err := MapByKey(context.Background(), in, out, fn, "key", nil, 1, Raise, quiet())
	if !errors.Is(err, boom) {
		t.Fatalf("expected aggregate wrapping the transform error, got %v", err)
	}

	var itemErr *ItemError
	if !errors.As(err, &itemErr) {
		t.Fatal("expected aggregate to carry an ItemError")
	}
	if itemErr.Key != "k2" {
		t.Errorf("expected failure to name key k2, got %v", itemErr.Key)
	}

	recs, readErr := ReadAll(out)
	if readErr != nil {
		t.Fatal(readErr)
	}

	keys := make(map[any]bool)
	for _, rec := range recs {
		keys[rec["key"]] = true
	}
	if !keys["k1"] || !keys["k3"] {
		t.Errorf("expected successful keys to be durable, got %v", keys)
	}
	if keys["k2"] {
		t.Error("failed key must not appear in the output")
	}
}

func TestMapByKey_PrintOmitsFailedRecords(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.jsonl")
	out := filepath.Join(dir, "out.jsonl")
	writeLines(t, in, `{"key": "k1"}`, `{"key": "k2"}`)

	fn := func(ctx context.Context, rec Record) (Record, error) {
		if rec["key"] == "k2" {
			return nil, errors.New("boom")
		}
		return Record{"result": "ok"}, nil
	}

	err := MapByKey(context.Background(), in, out, fn, "key", nil, 1, Print, quiet())
	if err != nil {
		t.Fatalf("expected print policy to complete, got %v", err)
	}

	recs, err := ReadAll(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0]["key"] != "k1" {
		t.Errorf("expected only the successful record, got %v", recs)
	}
}

func TestMapByKey_EmptyKeepColumns(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.jsonl")
	out := filepath.Join(dir, "out.jsonl")
	writeLines(t, in, `{"key": "a", "other": "dropped"}`)

	fn := func(ctx context.Context, rec Record) (Record, error) {
		return Record{"result": 1}, nil
	}

	if err := MapByKey(context.Background(), in, out, fn, "key", nil, 1, Raise, quiet()); err != nil {
		t.Fatal(err)
	}

	recs, err := ReadAll(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}

	rec := recs[0]
	if _, ok := rec["other"]; ok {
		t.Error("unrequested column leaked into the output")
	}
	if rec["key"] != "a" {
		t.Error("key field must always be present in the output")
	}
	if rec["result"] != float64(1) {
		t.Errorf("expected transform field, got %v", rec)
	}
}

func TestMapByKey_TransformFieldsWinOnConflict(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.jsonl")
	out := filepath.Join(dir, "out.jsonl")
	writeLines(t, in, `{"key": "a", "status": "input"}`)

	fn := func(ctx context.Context, rec Record) (Record, error) {
		return Record{"status": "transformed"}, nil
	}

	if err := MapByKey(context.Background(), in, out, fn, "key", []string{"status"}, 1, Raise, quiet()); err != nil {
		t.Fatal(err)
	}

	recs, err := ReadAll(out)
	if err != nil {
		t.Fatal(err)
	}
	if recs[0]["status"] != "transformed" {
		t.Errorf("expected transform field to take precedence, got %v", recs[0]["status"])
	}
}

func TestMapByKey_MissingInputFile(t *testing.T) {
	dir := t.TempDir()

	fn := func(ctx context.Context, rec Record) (Record, error) {
		return rec, nil
	}

	err := MapByKey(context.Background(), filepath.Join(dir, "absent.jsonl"),
		filepath.Join(dir, "out.jsonl"), fn, "key", nil, 1, Raise, quiet())
	if err == nil {
		t.Fatal("expected an error for a missing input file")
	}
}
