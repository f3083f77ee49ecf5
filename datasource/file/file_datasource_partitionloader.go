package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-kit/log/level"
	"github.com/go-sif/fanout"
	"github.com/go-sif/fanout/errors"
)

// PartitionLoader is capable of loading Batches of data from a single file
type PartitionLoader struct {
	path      string
	source    *DataSource
	file      *os.File
	closeOnce sync.Once
}

// ToString returns a string representation of this PartitionLoader
func (pl *PartitionLoader) ToString() string {
	return fmt.Sprintf("File loader filename: %s", pl.path)
}

// Load opens the file and returns an iterator over its Batches. The file is closed
// once the iterator runs out of Batches, or when Close is called.
func (pl *PartitionLoader) Load() (fanout.BatchIterator, error) {
	parser, ok := pl.source.parsers[strings.ToLower(filepath.Ext(pl.path))]
	if !ok {
		return nil, &errors.IOError{Op: "parse", Path: pl.path, Err: fmt.Errorf("no parser registered for this file type")}
	}
	f, err := os.Open(pl.path)
	if err != nil {
		return nil, &errors.IOError{Op: "open", Path: pl.path, Err: err}
	}
	pl.file = f
	it, err := parser.Parse(f, pl.Close)
	if err != nil {
		pl.Close()
		return nil, &errors.IOError{Op: "parse", Path: pl.path, Err: err}
	}
	return it, nil
}

// Close closes the underlying file, if it was opened. It is safe to call more than once.
func (pl *PartitionLoader) Close() {
	pl.closeOnce.Do(func() {
		if pl.file == nil {
			return
		}
		if err := pl.file.Close(); err != nil {
			level.Warn(pl.source.logger).Log("msg", "couldn't close file", "path", pl.path, "err", err)
		}
	})
}
