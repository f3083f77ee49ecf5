package dsv

import (
	"encoding/csv"
	"io"
	"sync"

	"github.com/go-sif/fanout"
)

type dsvFilePartitionIterator struct {
	parser       *Parser
	reader       *csv.Reader
	hasNext      bool
	names        []string
	schema       *fanout.Schema
	lock         sync.Mutex
	endListeners []func()
}

// OnEnd registers a listener which fires when this iterator runs out of Batches
func (dsvi *dsvFilePartitionIterator) OnEnd(onEnd func()) {
	dsvi.lock.Lock()
	defer dsvi.lock.Unlock()
	dsvi.endListeners = append(dsvi.endListeners, onEnd)
}

// HasNextBatch returns true iff this BatchIterator can produce another Batch
func (dsvi *dsvFilePartitionIterator) HasNextBatch() bool {
	dsvi.lock.Lock()
	defer dsvi.lock.Unlock()
	return dsvi.hasNext
}

// NextBatch returns the next Batch if one is available, or an error.
// The Schema is inferred from the records of the first Batch.
func (dsvi *dsvFilePartitionIterator) NextBatch() (*fanout.Batch, error) {
	dsvi.lock.Lock()
	defer dsvi.lock.Unlock()
	batch := &fanout.Batch{Schema: dsvi.schema, Rows: make([][]interface{}, 0)}
	if !dsvi.hasNext {
		return batch, nil
	}
	records, lines, err := dsvi.readRecords()
	if err != nil {
		dsvi.end()
		return nil, err
	}
	if dsvi.schema == nil && len(records) > 0 {
		schema, err := inferSchema(dsvi.parser.conf, dsvi.names, records)
		if err != nil {
			dsvi.end()
			return nil, err
		}
		dsvi.schema = schema
		batch.Schema = schema
	}
	for i, record := range records {
		row, err := scanRow(dsvi.parser.conf, dsvi.schema, record)
		if err != nil {
			dsvi.end()
			return nil, &csv.ParseError{StartLine: lines[i], Line: lines[i], Err: err}
		}
		batch.Rows = append(batch.Rows, row)
	}
	return batch, nil
}

// readRecords reads at most one Batch worth of records, along with their line numbers.
// It ends the iterator when the input is exhausted.
func (dsvi *dsvFilePartitionIterator) readRecords() ([][]string, []int, error) {
	var records [][]string
	var lines []int
	for len(records) < dsvi.parser.BatchSize() {
		record, err := dsvi.reader.Read()
		if err == io.EOF {
			dsvi.end()
			return records, lines, nil
		} else if err != nil {
			return nil, nil, err
		}
		line, _ := dsvi.reader.FieldPos(0)
		// records are reused by the reader
		records = append(records, append([]string(nil), record...))
		lines = append(lines, line)
	}
	return records, lines, nil
}

// end must be called with the lock held
func (dsvi *dsvFilePartitionIterator) end() {
	dsvi.hasNext = false
	for _, l := range dsvi.endListeners {
		l()
	}
	dsvi.endListeners = []func(){}
}
