package file

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/fanout"
	"github.com/go-sif/fanout/errors"
	"github.com/go-sif/fanout/logging"
)

// DefaultPathTemplate locates partition i at <root>/<i>
const DefaultPathTemplate = "{root}/{id}"

// DataSourceConf configures a file DataSource
type DataSourceConf struct {
	Root         string                    // substituted for {root} in PathTemplate
	PathTemplate string                    // partition directory template. {id} is replaced by the partition id. Defaults to DefaultPathTemplate.
	Parsers      []fanout.DataSourceParser // parsers, chosen by file extension
	Logger       log.Logger
}

// DataSource is a directory-per-partition layout of columnar data files
type DataSource struct {
	root     string
	template string
	parsers  map[string]fanout.DataSourceParser
	logger   log.Logger
}

// CreateDataSource is a factory for DataSources
func CreateDataSource(conf *DataSourceConf) *DataSource {
	template := conf.PathTemplate
	if len(template) == 0 {
		template = DefaultPathTemplate
	}
	parsers := make(map[string]fanout.DataSourceParser)
	for _, p := range conf.Parsers {
		for _, ext := range p.Extensions() {
			parsers[strings.ToLower(ext)] = p
		}
	}
	return &DataSource{
		root:     conf.Root,
		template: template,
		parsers:  parsers,
		logger:   logging.OrNop(conf.Logger),
	}
}

// Path returns the directory holding a given partition
func (fs *DataSource) Path(id fanout.PartitionID) string {
	return filepath.Clean(strings.ReplaceAll(id.Expand(fs.template), "{root}", fs.root))
}

// Analyze returns a PartitionMap, describing the data files which make up a partition
func (fs *DataSource) Analyze(id fanout.PartitionID) (*PartitionMap, error) {
	dir := fs.Path(id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &errors.IOError{Op: "read partition", Path: dir, Err: err}
	}
	var toRead []string
	for _, entry := range entries {
		name := entry.Name()
		// skip hidden files and markers such as _SUCCESS
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		if _, ok := fs.parsers[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		toRead = append(toRead, filepath.Join(dir, name))
	}
	if len(toRead) == 0 {
		return nil, &errors.IOError{Op: "read partition", Path: dir, Err: errors.ErrNoDataFiles}
	}
	sort.Strings(toRead)
	return &PartitionMap{
		files:  toRead,
		source: fs,
	}, nil
}

// Load reads every data file of a partition into a single Table. The Schema of the
// Table is that of the first Batch observed.
func (fs *DataSource) Load(ctx context.Context, id fanout.PartitionID) (*fanout.Table, error) {
	pm, err := fs.Analyze(id)
	if err != nil {
		return nil, err
	}
	table := fanout.CreateTable(nil)
	for pm.HasNext() {
		if err := fs.loadFile(id, pm.Next(), table); err != nil {
			return nil, err
		}
	}
	if table.NumRows() == 0 {
		return nil, &errors.SchemaError{Partition: int(id), Reason: "no rows could be loaded"}
	}
	level.Info(fs.logger).Log("msg", "loaded partition", "partition", id, "files", pm.NumFiles(), "rows", table.NumRows(), "schema", table.Schema().ToString())
	return table, nil
}

func (fs *DataSource) loadFile(id fanout.PartitionID, pl *PartitionLoader, table *fanout.Table) error {
	level.Debug(fs.logger).Log("msg", "loading file", "partition", id, "loader", pl.ToString())
	it, err := pl.Load()
	if err != nil {
		return err
	}
	defer pl.Close()
	warned := false
	for it.HasNextBatch() {
		batch, err := it.NextBatch()
		if err != nil {
			return &errors.IOError{Op: "parse", Path: pl.path, Err: err}
		}
		// the first Schema wins; later files are loaded positionally
		if schema := table.Schema(); !warned && schema != nil && batch.Schema != nil && batch.NumRows() > 0 {
			if err := schema.Equals(batch.Schema); err != nil {
				level.Warn(fs.logger).Log("msg", "file schema differs from partition schema", "partition", id, "path", pl.path, "err", err)
				warned = true
			}
		}
		if err := table.AppendBatch(batch); err != nil {
			return &errors.SchemaError{Partition: int(id), Reason: err.Error()}
		}
	}
	return nil
}
