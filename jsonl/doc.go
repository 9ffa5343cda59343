// Package jsonl implements resumable, key-indexed record pipelines over
// newline-delimited JSON files.
//
// Records are JSON objects, one per line. Each record carries a key field
// whose value identifies it for resumability: before doing any work, a
// pipeline audits its output file and only produces the records that are
// still missing, so an interrupted run can be re-run without recomputing
// what already succeeded. Every successful record is appended and flushed
// as it completes, which means a crash mid-run leaves a valid prefix that
// the next run builds on.
//
// Two pipelines are provided:
//
//   - CreateOrResume generates records until every expected key has a
//     target number of them.
//   - MapByKey transforms every input record exactly once, keyed by the
//     key field, optionally carrying selected input columns into the
//     output.
//
// Both run their work through pool.RunBounded, so concurrency is bounded
// and the work source is consumed lazily. Output order is completion
// order, not input order.
package jsonl
