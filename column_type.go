package fanout

import (
	"fmt"
	"strconv"
)

// ColumnType is an interface which is implemented to define a supported column type.
// Fanout provides the built-in types below, which cover the scalar kinds produced by
// the columnar file parsers.
type ColumnType interface {
	Size() int                     // returns size in bytes of a column type, or 0 for variable-length types
	ToString(v interface{}) string // produces a string representation of a value of this type
	SQLType() string               // the declared type used when materializing a column in a query engine
}

// BoolColumnType is a column type which stores a boolean value
type BoolColumnType struct{}

// Size in bytes of a BoolColumn
func (b *BoolColumnType) Size() int {
	return 1
}

// ToString produces a string representation of a value of a BoolColumnType value
func (b *BoolColumnType) ToString(v interface{}) string {
	if v == nil {
		return "null"
	}
	return strconv.FormatBool(v.(bool))
}

// SQLType returns the declared SQL type of a BoolColumn
func (b *BoolColumnType) SQLType() string {
	return "BOOLEAN"
}

// Int64ColumnType is a column type which stores an int64 value
type Int64ColumnType struct{}

// Size in bytes of an Int64Column
func (b *Int64ColumnType) Size() int {
	return 8
}

// ToString produces a string representation of a value of an Int64ColumnType value
func (b *Int64ColumnType) ToString(v interface{}) string {
	if v == nil {
		return "null"
	}
	return strconv.FormatInt(v.(int64), 10)
}

// SQLType returns the declared SQL type of an Int64Column
func (b *Int64ColumnType) SQLType() string {
	return "INTEGER"
}

// Float64ColumnType is a column type which stores a float64 value
type Float64ColumnType struct{}

// Size in bytes of a Float64Column
func (b *Float64ColumnType) Size() int {
	return 8
}

// ToString produces a string representation of a value of a Float64ColumnType value
func (b *Float64ColumnType) ToString(v interface{}) string {
	if v == nil {
		return "null"
	}
	return strconv.FormatFloat(v.(float64), 'g', -1, 64)
}

// SQLType returns the declared SQL type of a Float64Column
func (b *Float64ColumnType) SQLType() string {
	return "REAL"
}

// VarStringColumnType is a column type which stores a variable-length string value
type VarStringColumnType struct{}

// Size in bytes of the fixed-length portion of a VarStringColumn
func (b *VarStringColumnType) Size() int {
	return 0
}

// ToString produces a string representation of a value of a VarStringColumnType value
func (b *VarStringColumnType) ToString(v interface{}) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("\"%s\"", v.(string))
}

// SQLType returns the declared SQL type of a VarStringColumn
func (b *VarStringColumnType) SQLType() string {
	return "TEXT"
}
