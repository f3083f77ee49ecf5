package dsv

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/go-sif/fanout"
)

// ParserConf configures a DSV Parser
type ParserConf struct {
	BatchSize   int      // The maximum number of rows per Batch. Defaults to 8192.
	HeaderLines int      // The number of lines to ignore from the beginning of each file, before the column header. Defaults to 0.
	Delimiter   rune     // The delimiter separating columns in the file. Defaults to ,
	Comment     rune     // Lines beginning with the comment character are ignored. Cannot be equal to the Delimiter. Defaults to no comment character.
	NilValue    string   // A special string which represents nil values in the dataset. Defaults to "" (the empty string).
	Extensions  []string // File extensions handled by the Parser. Defaults to .csv, or .tsv for tab-delimited data.
}

// Parser produces Batches from DSV data. The first record of each file names the columns,
// and column types are inferred from the first data record.
type Parser struct {
	conf *ParserConf
}

// CreateParser returns a new DSV Parser
func CreateParser(conf *ParserConf) *Parser {
	if conf == nil {
		conf = &ParserConf{}
	}
	if conf.BatchSize <= 0 {
		conf.BatchSize = 8192
	}
	if conf.Delimiter == 0 {
		conf.Delimiter = ','
	}
	if len(conf.Extensions) == 0 {
		if conf.Delimiter == '\t' {
			conf.Extensions = []string{".tsv"}
		} else {
			conf.Extensions = []string{".csv"}
		}
	}
	return &Parser{conf: conf}
}

// Extensions returns the file extensions handled by this Parser
func (p *Parser) Extensions() []string {
	return p.conf.Extensions
}

// BatchSize returns the maximum size in rows of Batches produced by this Parser
func (p *Parser) BatchSize() int {
	return p.conf.BatchSize
}

// Parse parses DSV data to produce Batches
func (p *Parser) Parse(f *os.File, onIteratorEnd func()) (fanout.BatchIterator, error) {
	// start parsing by creating a reader
	reader := csv.NewReader(f)
	reader.Comma = p.conf.Delimiter
	reader.Comment = p.conf.Comment
	reader.ReuseRecord = true
	// skipped lines may have any width
	reader.FieldsPerRecord = -1

	// ignore header lines, if configured to do so
	for i := 0; i < p.conf.HeaderLines; i++ {
		_, err := reader.Read()
		if err != nil {
			return nil, err
		}
	}
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read column header: %w", err)
	}
	// all records must match the width of the header
	reader.FieldsPerRecord = len(header)

	iterator := &dsvFilePartitionIterator{
		parser:       p,
		reader:       reader,
		hasNext:      true,
		names:        append([]string(nil), header...),
		endListeners: []func(){},
	}
	if onIteratorEnd != nil {
		iterator.OnEnd(onIteratorEnd)
	}
	return iterator, nil
}
