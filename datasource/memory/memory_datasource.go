package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/go-sif/fanout"
	"github.com/go-sif/fanout/errors"
)

// DataSource is a PartitionLoader serving partitions which are already held in memory
type DataSource struct {
	lock       sync.RWMutex
	partitions map[fanout.PartitionID]*fanout.Table
}

// CreateDataSource is a factory for DataSources
func CreateDataSource() *DataSource {
	return &DataSource{partitions: make(map[fanout.PartitionID]*fanout.Table)}
}

// Add makes a Table available as the given partition, replacing any previous one
func (ds *DataSource) Add(id fanout.PartitionID, t *fanout.Table) {
	ds.lock.Lock()
	defer ds.lock.Unlock()
	ds.partitions[id] = t
}

// AddRows builds a single-batch Table from rows and makes it available as the given partition
func (ds *DataSource) AddRows(id fanout.PartitionID, schema *fanout.Schema, rows [][]interface{}) error {
	t := fanout.CreateTable(schema)
	if err := t.AppendBatch(&fanout.Batch{Schema: schema, Rows: rows}); err != nil {
		return &errors.SchemaError{Partition: int(id), Reason: err.Error()}
	}
	ds.Add(id, t)
	return nil
}

// Partitions returns the ids of all available partitions, in ascending order
func (ds *DataSource) Partitions() []fanout.PartitionID {
	ds.lock.RLock()
	defer ds.lock.RUnlock()
	ids := make([]fanout.PartitionID, 0, len(ds.partitions))
	for id := range ds.partitions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Load returns the Table for a partition
func (ds *DataSource) Load(ctx context.Context, id fanout.PartitionID) (*fanout.Table, error) {
	ds.lock.RLock()
	t, ok := ds.partitions[id]
	ds.lock.RUnlock()
	if !ok {
		return nil, &errors.IOError{Op: "read partition", Path: fmt.Sprintf("memory://%d", id), Err: os.ErrNotExist}
	}
	if t.NumRows() == 0 {
		return nil, &errors.SchemaError{Partition: int(id), Reason: "no rows could be loaded"}
	}
	return t, nil
}
