// Package jsonl parses JSON Lines data files into Batches. This parser uses https://github.com/tidwall/gjson
// to process data. Columns are the top-level keys of the first object in each file, typed after
// the values seen in the first Batch.
package jsonl
