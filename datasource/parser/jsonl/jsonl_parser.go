package jsonl

import (
	"bufio"
	"os"

	"github.com/go-sif/fanout"
)

// ParserConf configures a JSONL Parser, suitable for JSON lines data
type ParserConf struct {
	BatchSize     int  // The maximum number of rows per Batch. Defaults to 8192.
	HeaderLines   int  // The number of lines to ignore from the beginning of each file. Defaults to 0.
	Comment       rune // Lines beginning with the comment character are ignored. Defaults to no comment character.
	MaxBufferSize int  // Maximum size in bytes of the buffer used to read lines from the file
}

// Parser produces Batches from JSONL data
type Parser struct {
	conf *ParserConf
}

// CreateParser returns a new JSONL Parser. Each line must hold one JSON object; values within
// the JSON which do not correspond to a Schema column are ignored.
func CreateParser(conf *ParserConf) *Parser {
	if conf == nil {
		conf = &ParserConf{}
	}
	if conf.BatchSize <= 0 {
		conf.BatchSize = 8192
	}
	if conf.MaxBufferSize == 0 {
		conf.MaxBufferSize = bufio.MaxScanTokenSize
	}
	return &Parser{conf: conf}
}

// Extensions returns the file extensions handled by this Parser
func (p *Parser) Extensions() []string {
	return []string{".jsonl", ".ndjson"}
}

// BatchSize returns the maximum size in rows of Batches produced by this Parser
func (p *Parser) BatchSize() int {
	return p.conf.BatchSize
}

// Parse parses JSONL data to produce Batches
func (p *Parser) Parse(f *os.File, onIteratorEnd func()) (fanout.BatchIterator, error) {
	// start parsing by creating a scanner
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), p.conf.MaxBufferSize)
	// ignore header lines, if configured to do so
	for i := 0; i < p.conf.HeaderLines; i++ {
		scanner.Scan()
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	iterator := &jsonlFilePartitionIterator{
		parser:       p,
		scanner:      scanner,
		hasNext:      true,
		endListeners: []func(){},
	}
	if onIteratorEnd != nil {
		iterator.OnEnd(onIteratorEnd)
	}
	return iterator, nil
}
