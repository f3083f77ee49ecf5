package fanout

import (
	"context"
	"os"
	"strconv"
	"strings"
)

// PartitionID identifies one partition of a dataset. Partition ids are small positive integers.
type PartitionID int

// Expand replaces every occurrence of {id} in template with this PartitionID
func (id PartitionID) Expand(template string) string {
	return strings.ReplaceAll(template, "{id}", strconv.Itoa(int(id)))
}

// PartitionLoader reads a single partition of data into an in-memory Table.
// Implementations must not mutate the source data.
type PartitionLoader interface {
	Load(ctx context.Context, id PartitionID) (*Table, error)
}

// BatchIterator is a generalized interface for iterating over the Batches of a single data file
type BatchIterator interface {
	HasNextBatch() bool
	NextBatch() (*Batch, error)
	OnEnd(onEnd func())
}

// A DataSourceParser is capable of parsing one columnar data file to produce Batches
type DataSourceParser interface {
	Extensions() []string // file extensions (including the leading dot) handled by this parser
	BatchSize() int       // the maximum number of rows in each Batch produced by this parser
	Parse(f *os.File, onIteratorEnd func()) (BatchIterator, error)
}
