package parquet

import (
	"io"
	"sync"

	"github.com/go-sif/fanout"
	"github.com/parquet-go/parquet-go"
)

type parquetFilePartitionIterator struct {
	parser       *Parser
	reader       *parquet.Reader
	schema       *fanout.Schema
	hasNext      bool
	buffer       []parquet.Row
	lock         sync.Mutex
	endListeners []func()
}

// OnEnd registers a listener which fires when this iterator runs out of Batches
func (pi *parquetFilePartitionIterator) OnEnd(onEnd func()) {
	pi.lock.Lock()
	defer pi.lock.Unlock()
	pi.endListeners = append(pi.endListeners, onEnd)
}

// HasNextBatch returns true iff this BatchIterator can produce another Batch
func (pi *parquetFilePartitionIterator) HasNextBatch() bool {
	pi.lock.Lock()
	defer pi.lock.Unlock()
	return pi.hasNext
}

// NextBatch returns the next Batch if one is available, or an error
func (pi *parquetFilePartitionIterator) NextBatch() (*fanout.Batch, error) {
	pi.lock.Lock()
	defer pi.lock.Unlock()
	batch := &fanout.Batch{Schema: pi.schema, Rows: make([][]interface{}, 0, len(pi.buffer))}
	if !pi.hasNext {
		return batch, nil
	}
	n, err := pi.reader.ReadRows(pi.buffer)
	for _, prow := range pi.buffer[:n] {
		row := make([]interface{}, pi.schema.NumColumns())
		for _, v := range prow {
			if col := v.Column(); col >= 0 && col < len(row) {
				row[col] = toScalar(v)
			}
		}
		batch.Rows = append(batch.Rows, row)
	}
	if err == io.EOF || (err == nil && n == 0) {
		pi.end()
		return batch, nil
	} else if err != nil {
		pi.end()
		return nil, err
	}
	return batch, nil
}

// end must be called with the lock held, or before the iterator is shared
func (pi *parquetFilePartitionIterator) end() {
	pi.hasNext = false
	if pi.reader != nil {
		pi.reader.Close()
	}
	for _, l := range pi.endListeners {
		l()
	}
	pi.endListeners = []func(){}
}
