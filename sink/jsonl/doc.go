// Package jsonl provides a RecordWriter which appends Records to a single line-delimited
// JSON stream. Writes from concurrent goroutines never interleave below record granularity,
// and the destination is atomically replaced when the stream is finished.
package jsonl
