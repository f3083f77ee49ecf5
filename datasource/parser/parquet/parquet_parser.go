package parquet

import (
	"fmt"
	"os"

	"github.com/go-sif/fanout"
	"github.com/parquet-go/parquet-go"
)

// ParserConf configures a Parquet Parser
type ParserConf struct {
	BatchSize int // The maximum number of rows per Batch. Defaults to 8192.
}

// Parser produces Batches from Parquet files
type Parser struct {
	conf *ParserConf
}

// CreateParser returns a new Parquet Parser
func CreateParser(conf *ParserConf) *Parser {
	if conf == nil {
		conf = &ParserConf{}
	}
	if conf.BatchSize <= 0 {
		conf.BatchSize = 8192
	}
	return &Parser{conf: conf}
}

// Extensions returns the file extensions handled by this Parser
func (p *Parser) Extensions() []string {
	return []string{".parquet"}
}

// BatchSize returns the maximum size in rows of Batches produced by this Parser
func (p *Parser) BatchSize() int {
	return p.conf.BatchSize
}

// Parse opens a Parquet file and returns an iterator over its rows, in Batches
func (p *Parser) Parse(f *os.File, onIteratorEnd func()) (fanout.BatchIterator, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file %s: %w", f.Name(), err)
	}
	schema, err := SchemaOf(pf.Schema())
	if err != nil {
		return nil, fmt.Errorf("unsupported schema in %s: %w", f.Name(), err)
	}
	iterator := &parquetFilePartitionIterator{
		parser:       p,
		reader:       parquet.NewReader(pf),
		schema:       schema,
		hasNext:      pf.NumRows() > 0,
		buffer:       make([]parquet.Row, p.conf.BatchSize),
		endListeners: []func(){},
	}
	if onIteratorEnd != nil {
		iterator.OnEnd(onIteratorEnd)
	}
	if !iterator.hasNext {
		iterator.end()
	}
	return iterator, nil
}

// SchemaOf converts the leaf columns of a Parquet schema into a Schema, in column-index order
func SchemaOf(ps *parquet.Schema) (*fanout.Schema, error) {
	schema := fanout.CreateSchema()
	for _, path := range ps.Columns() {
		if len(path) != 1 {
			return nil, fmt.Errorf("nested column %v is not supported", path)
		}
		leaf, ok := ps.Lookup(path...)
		if !ok {
			return nil, fmt.Errorf("column %s could not be found", path[0])
		}
		if leaf.MaxRepetitionLevel > 0 {
			return nil, fmt.Errorf("repeated column %s is not supported", path[0])
		}
		colType, err := columnTypeOf(leaf.Node.Type().Kind())
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", path[0], err)
		}
		if err := schema.CreateColumn(path[0], colType); err != nil {
			return nil, err
		}
	}
	if schema.NumColumns() == 0 {
		return nil, fmt.Errorf("schema has no columns")
	}
	return schema, nil
}

func columnTypeOf(kind parquet.Kind) (fanout.ColumnType, error) {
	switch kind {
	case parquet.Boolean:
		return &fanout.BoolColumnType{}, nil
	case parquet.Int32, parquet.Int64:
		return &fanout.Int64ColumnType{}, nil
	case parquet.Float, parquet.Double:
		return &fanout.Float64ColumnType{}, nil
	case parquet.ByteArray, parquet.FixedLenByteArray, parquet.Int96:
		return &fanout.VarStringColumnType{}, nil
	default:
		return nil, fmt.Errorf("parquet kind %s is not supported", kind)
	}
}

// toScalar converts a parquet Value into the Go representation used within Batches
func toScalar(v parquet.Value) interface{} {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}
