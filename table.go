package fanout

import "fmt"

// A Batch is a group of rows sharing one Schema. Each row holds one value per
// Schema column, in column order. A nil value represents a null.
type Batch struct {
	Schema *Schema
	Rows   [][]interface{}
}

// NumRows returns the number of rows in this Batch
func (b *Batch) NumRows() int {
	return len(b.Rows)
}

// A Table is an in-memory columnar dataset with a fixed Schema and zero or more Batches.
// Tables are built once by a PartitionLoader and are read-only afterwards.
type Table struct {
	schema  *Schema
	batches []*Batch
	numRows int
}

// CreateTable is a factory for Tables. The schema may be nil, in which case
// the schema of the first appended Batch is adopted.
func CreateTable(schema *Schema) *Table {
	return &Table{schema: schema, batches: make([]*Batch, 0)}
}

// Schema returns the Schema of this Table, or nil if no Batch has been observed yet
func (t *Table) Schema() *Schema {
	return t.schema
}

// AppendBatch adds a Batch to this Table. Batches are assumed to share the Table's
// Schema; only the row width is checked.
func (t *Table) AppendBatch(b *Batch) error {
	if b == nil || b.NumRows() == 0 {
		return nil
	}
	if t.schema == nil {
		if b.Schema == nil {
			return fmt.Errorf("first batch of a table must carry a schema")
		}
		t.schema = b.Schema
	}
	for _, row := range b.Rows {
		if len(row) != t.schema.NumColumns() {
			return fmt.Errorf("row width %d is not compatible with schema width %d", len(row), t.schema.NumColumns())
		}
	}
	t.batches = append(t.batches, b)
	t.numRows += b.NumRows()
	return nil
}

// Batches returns the Batches of this Table
func (t *Table) Batches() []*Batch {
	return t.batches
}

// NumRows returns the total number of rows across all Batches
func (t *Table) NumRows() int {
	return t.numRows
}

// ForEachRow iterates over every row of every Batch, in order
func (t *Table) ForEachRow(fn func(row []interface{}) error) error {
	for _, b := range t.batches {
		for _, row := range b.Rows {
			if err := fn(row); err != nil {
				return err
			}
		}
	}
	return nil
}
