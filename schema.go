package fanout

import (
	"fmt"
	"strings"
)

// Column is a named, typed field of a Schema
type Column struct {
	Name string
	Type ColumnType
}

// Schema is an ordered sequence of named, typed columns. Column order is
// significant: it is the order of values within every row of a Batch.
type Schema struct {
	columns []Column
	index   map[string]int
}

// CreateSchema is a factory for Schemas
func CreateSchema() *Schema {
	return &Schema{
		columns: make([]Column, 0),
		index:   make(map[string]int),
	}
}

// CreateColumn appends a new column to this Schema
func (s *Schema) CreateColumn(colName string, columnType ColumnType) error {
	if len(colName) == 0 {
		return fmt.Errorf("column name cannot be empty")
	}
	if columnType == nil {
		return fmt.Errorf("column %s must have a type", colName)
	}
	if _, ok := s.index[colName]; ok {
		return fmt.Errorf("column %s already exists in schema", colName)
	}
	s.index[colName] = len(s.columns)
	s.columns = append(s.columns, Column{Name: colName, Type: columnType})
	return nil
}

// NumColumns returns the number of columns in this Schema
func (s *Schema) NumColumns() int {
	return len(s.columns)
}

// GetIndex returns the position of a column within rows of this Schema
func (s *Schema) GetIndex(colName string) (int, error) {
	idx, ok := s.index[colName]
	if !ok {
		return -1, fmt.Errorf("schema has no column named %s", colName)
	}
	return idx, nil
}

// Column returns the column at a given position
func (s *Schema) Column(idx int) Column {
	return s.columns[idx]
}

// ColumnNames returns the names of all columns, in order
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Equals returns an error if the other Schema does not have identical column names and types
func (s *Schema) Equals(otherSchema *Schema) error {
	if otherSchema == nil {
		return fmt.Errorf("schema is nil")
	}
	if len(s.columns) != len(otherSchema.columns) {
		return fmt.Errorf("schemas have different numbers of columns: %d vs %d", len(s.columns), len(otherSchema.columns))
	}
	for i, c := range s.columns {
		o := otherSchema.columns[i]
		if c.Name != o.Name {
			return fmt.Errorf("column %d is named %s in one schema and %s in the other", i, c.Name, o.Name)
		}
		if fmt.Sprintf("%T", c.Type) != fmt.Sprintf("%T", o.Type) {
			return fmt.Errorf("column %s has type %T in one schema and %T in the other", c.Name, c.Type, o.Type)
		}
	}
	return nil
}

// ToString returns a string representation of this Schema
func (s *Schema) ToString() string {
	var res strings.Builder
	fmt.Fprint(&res, "[")
	for i, c := range s.columns {
		if i > 0 {
			fmt.Fprint(&res, ", ")
		}
		fmt.Fprintf(&res, "%s %s", c.Name, c.Type.SQLType())
	}
	fmt.Fprint(&res, "]")
	return res.String()
}
