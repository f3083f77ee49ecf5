package jsonl

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/go-sif/fanout"
	"github.com/go-sif/fanout/errors"
	"github.com/google/renameio/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/pierrec/lz4/v4"
)

// jsoniter's standard-library-compatible configuration sorts map keys, so identical
// Records always serialize to identical bytes
var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// CompressionNone writes plain JSONL
	CompressionNone = ""
	// CompressionLZ4 wraps the stream in an LZ4 frame
	CompressionLZ4 = "lz4"
)

// WriterConf configures a Writer
type WriterConf struct {
	Compression string      // CompressionNone or CompressionLZ4
	BufferSize  int         // size of the write buffer in bytes. Defaults to 64KiB.
	Perm        os.FileMode // permissions of the destination file. Defaults to 0644.
}

// Summary describes a finished output stream
type Summary struct {
	Path     string // the destination path
	Records  int    // the number of records written
	Bytes    int64  // the number of uncompressed bytes written
	Checksum uint64 // xxhash64 of the uncompressed bytes
}

// Writer is a mutex-guarded, line-delimited JSON RecordWriter. Bytes are written to a
// pending file next to the destination, which replaces the destination on Finish.
type Writer struct {
	path     string
	lock     sync.Mutex
	pending  *renameio.PendingFile
	lz       *lz4.Writer
	buf      *bufio.Writer
	digest   *xxhash.Digest
	records  int
	bytes    int64
	err      error // sticky write error
	finished bool
}

// Create is a factory for Writers. Any existing file at path is left untouched until Finish.
func Create(path string, conf *WriterConf) (*Writer, error) {
	if conf == nil {
		conf = &WriterConf{}
	}
	bufferSize := conf.BufferSize
	if bufferSize <= 0 {
		bufferSize = 64 * 1024
	}
	perm := conf.Perm
	if perm == 0 {
		perm = 0o644
	}
	if conf.Compression != CompressionNone && conf.Compression != CompressionLZ4 {
		return nil, fmt.Errorf("unknown compression %q", conf.Compression)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &errors.IOError{Op: "create output", Path: path, Err: err}
	}
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(perm), renameio.WithTempDir(filepath.Dir(path)))
	if err != nil {
		return nil, &errors.IOError{Op: "create output", Path: path, Err: err}
	}
	w := &Writer{
		path:    path,
		pending: pending,
		digest:  xxhash.New(),
	}
	var dest io.Writer = pending
	if conf.Compression == CompressionLZ4 {
		w.lz = lz4.NewWriter(pending)
		dest = w.lz
	}
	w.buf = bufio.NewWriterSize(dest, bufferSize)
	return w, nil
}

// Path returns the destination path of this Writer
func (w *Writer) Path() string {
	return w.path
}

// Write appends each record as one line. Records are serialized before the lock is taken,
// and either all of them are appended or none are.
func (w *Writer) Write(records ...fanout.Record) error {
	if len(records) == 0 {
		return nil
	}
	var encoded bytes.Buffer
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to serialize record: %w", err)
		}
		encoded.Write(line)
		encoded.WriteByte('\n')
	}

	w.lock.Lock()
	defer w.lock.Unlock()
	if w.finished {
		return errors.ErrFinished
	}
	if w.err != nil {
		return w.err
	}
	if _, err := w.buf.Write(encoded.Bytes()); err != nil {
		w.err = &errors.IOError{Op: "write output", Path: w.path, Err: err}
		return w.err
	}
	w.digest.Write(encoded.Bytes())
	w.records += len(records)
	w.bytes += int64(encoded.Len())
	return nil
}

// Records returns the number of records written so far
func (w *Writer) Records() int {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.records
}

// Finish flushes the stream and atomically replaces the destination with it.
// Finish may only be called once; later calls, and later Writes, return ErrFinished.
func (w *Writer) Finish() (*Summary, error) {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.finished {
		return nil, errors.ErrFinished
	}
	w.finished = true
	if w.err != nil {
		w.pending.Cleanup()
		return nil, w.err
	}
	if err := w.flush(); err != nil {
		w.pending.Cleanup()
		return nil, &errors.IOError{Op: "finish output", Path: w.path, Err: err}
	}
	if err := w.pending.CloseAtomicallyReplace(); err != nil {
		w.pending.Cleanup()
		return nil, &errors.IOError{Op: "finish output", Path: w.path, Err: err}
	}
	return &Summary{
		Path:     w.path,
		Records:  w.records,
		Bytes:    w.bytes,
		Checksum: w.digest.Sum64(),
	}, nil
}

// Abort discards everything written, leaving any existing destination untouched.
// Abort after Finish does nothing.
func (w *Writer) Abort() error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.finished {
		return nil
	}
	w.finished = true
	return w.pending.Cleanup()
}

func (w *Writer) flush() error {
	if err := w.buf.Flush(); err != nil {
		return err
	}
	if w.lz != nil {
		return w.lz.Close()
	}
	return nil
}
