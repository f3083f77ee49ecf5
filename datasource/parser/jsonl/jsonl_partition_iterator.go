package jsonl

import (
	"bufio"
	"fmt"
	"strings"
	"sync"

	"github.com/go-sif/fanout"
	"github.com/tidwall/gjson"
)

type jsonlFilePartitionIterator struct {
	parser       *Parser
	scanner      *bufio.Scanner
	hasNext      bool
	schema       *fanout.Schema
	lineNum      int
	lock         sync.Mutex
	endListeners []func()
}

// OnEnd registers a listener which fires when this iterator runs out of Batches
func (jsonli *jsonlFilePartitionIterator) OnEnd(onEnd func()) {
	jsonli.lock.Lock()
	defer jsonli.lock.Unlock()
	jsonli.endListeners = append(jsonli.endListeners, onEnd)
}

// HasNextBatch returns true iff this BatchIterator can produce another Batch
func (jsonli *jsonlFilePartitionIterator) HasNextBatch() bool {
	jsonli.lock.Lock()
	defer jsonli.lock.Unlock()
	return jsonli.hasNext
}

// NextBatch returns the next Batch if one is available, or an error.
// The Schema is inferred from the objects of the first Batch.
func (jsonli *jsonlFilePartitionIterator) NextBatch() (*fanout.Batch, error) {
	jsonli.lock.Lock()
	defer jsonli.lock.Unlock()
	batch := &fanout.Batch{Schema: jsonli.schema, Rows: make([][]interface{}, 0)}
	if !jsonli.hasNext {
		return batch, nil
	}
	objs, lines, err := jsonli.readObjects()
	if err != nil {
		jsonli.end()
		return nil, err
	}
	if jsonli.schema == nil && len(objs) > 0 {
		schema, err := InferSchema(objs...)
		if err != nil {
			jsonli.end()
			return nil, fmt.Errorf("line %d: %w", lines[0], err)
		}
		jsonli.schema = schema
		batch.Schema = schema
	}
	for i, obj := range objs {
		row, err := ParseJSONRow(jsonli.schema, obj)
		if err != nil {
			jsonli.end()
			return nil, fmt.Errorf("line %d: %w", lines[i], err)
		}
		batch.Rows = append(batch.Rows, row)
	}
	return batch, nil
}

// readObjects reads at most one Batch worth of JSON objects, along with their line numbers.
// It ends the iterator when the input is exhausted.
func (jsonli *jsonlFilePartitionIterator) readObjects() ([]gjson.Result, []int, error) {
	var objs []gjson.Result
	var lines []int
	for len(objs) < jsonli.parser.BatchSize() {
		if !jsonli.scanner.Scan() {
			if err := jsonli.scanner.Err(); err != nil {
				return nil, nil, err
			}
			jsonli.end()
			return objs, lines, nil
		}
		jsonli.lineNum++
		rowString := jsonli.scanner.Text()
		if jsonli.skip(rowString) {
			continue
		}
		if !gjson.Valid(rowString) {
			return nil, nil, fmt.Errorf("line %d is not valid JSON", jsonli.lineNum)
		}
		parsed := gjson.Parse(rowString)
		if !parsed.IsObject() {
			return nil, nil, fmt.Errorf("line %d is not a JSON object", jsonli.lineNum)
		}
		objs = append(objs, parsed)
		lines = append(lines, jsonli.lineNum)
	}
	return objs, lines, nil
}

func (jsonli *jsonlFilePartitionIterator) skip(line string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) == 0 {
		return true
	}
	comment := jsonli.parser.conf.Comment
	return comment != 0 && strings.HasPrefix(trimmed, string(comment))
}

// end must be called with the lock held
func (jsonli *jsonlFilePartitionIterator) end() {
	jsonli.hasNext = false
	for _, l := range jsonli.endListeners {
		l()
	}
	jsonli.endListeners = []func(){}
}
