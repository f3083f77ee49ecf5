package jsonl

import (
	"fmt"
	"strings"

	"github.com/go-sif/fanout"
	"github.com/tidwall/gjson"
)

// InferSchema builds a Schema from the top-level keys of the first JSON object, in document
// order. Each column is typed after its first non-null value across all the given objects.
// Numeric columns are Int64 unless any of their values is fractional or exponential, in which
// case they are Float64. Columns which are null in every object are assumed to be numeric.
func InferSchema(objs ...gjson.Result) (*fanout.Schema, error) {
	if len(objs) == 0 {
		return nil, fmt.Errorf("no objects to infer a schema from")
	}
	var names []string
	samples := make(map[string]*columnSample)
	objs[0].ForEach(func(key, value gjson.Result) bool {
		names = append(names, key.String())
		samples[key.String()] = &columnSample{}
		return true
	})
	if len(names) == 0 {
		return nil, fmt.Errorf("object has no keys")
	}
	var err error
	for _, obj := range objs {
		obj.ForEach(func(key, value gjson.Result) bool {
			sample, ok := samples[key.String()]
			if !ok {
				return true
			}
			err = sample.observe(key.String(), value)
			return err == nil
		})
		if err != nil {
			return nil, err
		}
	}
	schema := fanout.CreateSchema()
	for _, name := range names {
		if err := schema.CreateColumn(name, samples[name].columnType()); err != nil {
			return nil, err
		}
	}
	return schema, nil
}

// columnSample accumulates what has been seen of one column's values
type columnSample struct {
	kind       gjson.Type // the type of the first non-null value, or gjson.Null
	fractional bool       // whether any numeric value was non-integral
}

func (c *columnSample) observe(name string, value gjson.Result) error {
	switch value.Type {
	case gjson.Null:
		return nil
	case gjson.JSON:
		return fmt.Errorf("column %s holds a nested value, which is not supported", name)
	case gjson.False:
		value.Type = gjson.True
	}
	if c.kind == gjson.Null {
		c.kind = value.Type
	}
	if c.kind == gjson.Number && value.Type == gjson.Number && isFractional(value) {
		c.fractional = true
	}
	return nil
}

func (c *columnSample) columnType() fanout.ColumnType {
	switch c.kind {
	case gjson.Number:
		if c.fractional {
			return &fanout.Float64ColumnType{}
		}
		return &fanout.Int64ColumnType{}
	case gjson.True:
		return &fanout.BoolColumnType{}
	case gjson.String:
		return &fanout.VarStringColumnType{}
	default:
		return &fanout.Float64ColumnType{}
	}
}

func isFractional(val gjson.Result) bool {
	return strings.ContainsAny(val.Raw, ".eE")
}

// ParseJSONRow extracts one row of values from a JSON object, according to a Schema.
// Keys missing from the object produce null values.
func ParseJSONRow(schema *fanout.Schema, obj gjson.Result) ([]interface{}, error) {
	row := make([]interface{}, schema.NumColumns())
	var err error
	obj.ForEach(func(key, value gjson.Result) bool {
		idx, ierr := schema.GetIndex(key.String())
		if ierr != nil {
			return true
		}
		row[idx], err = parseValue(value, schema.Column(idx))
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func parseValue(val gjson.Result, col fanout.Column) (interface{}, error) {
	if val.Type == gjson.Null {
		return nil, nil
	}
	switch col.Type.(type) {
	case *fanout.BoolColumnType:
		if val.Type != gjson.True && val.Type != gjson.False {
			return nil, fmt.Errorf("column %s was not a boolean. Was: %s", col.Name, val.Raw)
		}
		return val.Bool(), nil
	case *fanout.Int64ColumnType:
		if val.Type != gjson.Number {
			return nil, fmt.Errorf("column %s was not a number. Was: %s", col.Name, val.Raw)
		}
		if isFractional(val) {
			return nil, fmt.Errorf("column %s was not an integer. Was: %s", col.Name, val.Raw)
		}
		return val.Int(), nil
	case *fanout.Float64ColumnType:
		if val.Type != gjson.Number {
			return nil, fmt.Errorf("column %s was not a number. Was: %s", col.Name, val.Raw)
		}
		return val.Float(), nil
	case *fanout.VarStringColumnType:
		return val.String(), nil
	default:
		return nil, fmt.Errorf("JSONL parsing does not support column type %T", col.Type)
	}
}
