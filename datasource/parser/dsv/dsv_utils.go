package dsv

import (
	"fmt"
	"strconv"

	"github.com/go-sif/fanout"
)

type valueKind int

const (
	nilKind valueKind = iota
	intKind
	floatKind
	boolKind
	stringKind
)

func isNil(conf *ParserConf, colVal string) bool {
	return len(colVal) == 0 || colVal == conf.NilValue
}

func kindOf(colVal string) valueKind {
	if _, err := strconv.ParseInt(colVal, 10, 64); err == nil {
		return intKind
	} else if _, err := strconv.ParseFloat(colVal, 64); err == nil {
		return floatKind
	} else if _, err := strconv.ParseBool(colVal); err == nil {
		return boolKind
	}
	return stringKind
}

// inferSchema names columns after the header, and types each after its first non-nil value
// among the given records. Integer columns holding any other number become Float64 columns.
// Columns which are nil in every record are assumed to be numeric.
func inferSchema(conf *ParserConf, names []string, records [][]string) (*fanout.Schema, error) {
	schema := fanout.CreateSchema()
	for i, name := range names {
		kind := nilKind
		for _, record := range records {
			if isNil(conf, record[i]) {
				continue
			}
			next := kindOf(record[i])
			if kind == nilKind || (kind == intKind && next == floatKind) {
				kind = next
			}
		}
		var colType fanout.ColumnType
		switch kind {
		case intKind:
			colType = &fanout.Int64ColumnType{}
		case boolKind:
			colType = &fanout.BoolColumnType{}
		case stringKind:
			colType = &fanout.VarStringColumnType{}
		default:
			colType = &fanout.Float64ColumnType{}
		}
		if err := schema.CreateColumn(name, colType); err != nil {
			return nil, err
		}
	}
	return schema, nil
}

// Parses a slice of strings into a row, according to a schema
func scanRow(conf *ParserConf, schema *fanout.Schema, rowStrings []string) ([]interface{}, error) {
	row := make([]interface{}, schema.NumColumns())
	for i := 0; i < len(rowStrings); i++ {
		colVal := rowStrings[i]
		col := schema.Column(i)
		// check for a nil value
		if isNil(conf, colVal) {
			continue
		}
		// otherwise, parse type
		switch col.Type.(type) {
		case *fanout.BoolColumnType:
			bval, err := strconv.ParseBool(colVal)
			if err != nil {
				return nil, fmt.Errorf("column %s was not a boolean. Was: %#v", col.Name, colVal)
			}
			row[i] = bval
		case *fanout.Int64ColumnType:
			ival, err := strconv.ParseInt(colVal, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("column %s was not an integer. Was: %#v", col.Name, colVal)
			}
			row[i] = ival
		case *fanout.Float64ColumnType:
			fval, err := strconv.ParseFloat(colVal, 64)
			if err != nil {
				return nil, fmt.Errorf("column %s was not a number. Was: %#v", col.Name, colVal)
			}
			row[i] = fval
		case *fanout.VarStringColumnType:
			row[i] = colVal
		default:
			return nil, fmt.Errorf("DSV parsing does not support column type %T", col.Type)
		}
	}
	return row, nil
}
