package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-sif/fanout"
	"github.com/go-sif/fanout/logging"
	"github.com/go-sif/fanout/scheduler"
	"github.com/go-sif/fanout/sink/jsonl"
)

// Options configure a fan-out run
type Options struct {
	DataRoot         string   `mapstructure:"data_root"`         // substituted for {root} in PathTemplate
	PathTemplate     string   `mapstructure:"path_template"`     // partition directory template. {id} is replaced by the partition id
	OutputDir        string   `mapstructure:"output_dir"`        // directory receiving one output stream per partition
	OutputTemplate   string   `mapstructure:"output_template"`   // output file name template. {id} is replaced by the partition id
	TableTemplate    string   `mapstructure:"table_template"`    // name of the table each partition is registered as
	Families         []string `mapstructure:"families"`          // query families, in the form prefix:aggregate:from-to
	Partitions       int      `mapstructure:"partitions"`        // partitions 1..Partitions are processed
	PartitionWorkers int      `mapstructure:"partition_workers"` // the maximum number of partitions processed at once
	QueryWorkers     int      `mapstructure:"query_workers"`     // the maximum number of queries executing at once, across all partitions
	BatchSize        int      `mapstructure:"batch_size"`        // the maximum number of rows per loaded batch
	Compression      string   `mapstructure:"compression"`       // output compression, either "" or "lz4"
	LogLevel         string   `mapstructure:"log_level"`         // one of trace, debug, info, warn, error, fatal
	LogFormat        string   `mapstructure:"log_format"`        // either logfmt or json
	MetricsAddr      string   `mapstructure:"metrics_addr"`      // if set, prometheus metrics are served on this address during the run
}

// DefaultOptions returns Options with every default value applied
func DefaultOptions() *Options {
	opts := &Options{}
	ensureDefaultOptionsValues(opts)
	return opts
}

// Clone makes a copy of an Options
func (o *Options) Clone() *Options {
	return &Options{
		DataRoot:         o.DataRoot,
		PathTemplate:     o.PathTemplate,
		OutputDir:        o.OutputDir,
		OutputTemplate:   o.OutputTemplate,
		TableTemplate:    o.TableTemplate,
		Families:         append([]string(nil), o.Families...),
		Partitions:       o.Partitions,
		PartitionWorkers: o.PartitionWorkers,
		QueryWorkers:     o.QueryWorkers,
		BatchSize:        o.BatchSize,
		Compression:      o.Compression,
		LogLevel:         o.LogLevel,
		LogFormat:        o.LogFormat,
		MetricsAddr:      o.MetricsAddr,
	}
}

func ensureDefaultOptionsValues(opts *Options) {
	if len(opts.DataRoot) == 0 {
		opts.DataRoot = "pensionHistory"
	}
	if len(opts.PathTemplate) == 0 {
		opts.PathTemplate = "{root}/{id}"
	}
	if len(opts.OutputDir) == 0 {
		opts.OutputDir = "."
	}
	if len(opts.OutputTemplate) == 0 {
		opts.OutputTemplate = "results_{id}.jsonl"
	}
	if len(opts.TableTemplate) == 0 {
		opts.TableTemplate = "pension_history_{id}"
	}
	if len(opts.Families) == 0 {
		for _, f := range scheduler.DefaultFamilies() {
			opts.Families = append(opts.Families, f.ToString())
		}
	}
	if opts.Partitions == 0 {
		opts.Partitions = 9
	}
	if opts.PartitionWorkers == 0 {
		opts.PartitionWorkers = 10
	}
	if opts.QueryWorkers == 0 {
		opts.QueryWorkers = scheduler.DefaultWorkers
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = 8192
	}
	if len(opts.LogLevel) == 0 {
		opts.LogLevel = "info"
	}
	if len(opts.LogFormat) == 0 {
		opts.LogFormat = "logfmt"
	}
}

// Validate returns an error describing the first invalid option, if any
func (o *Options) Validate() error {
	if o.Partitions < 1 {
		return fmt.Errorf("partitions must be at least 1, was %d", o.Partitions)
	}
	if o.PartitionWorkers < 1 {
		return fmt.Errorf("partition_workers must be at least 1, was %d", o.PartitionWorkers)
	}
	if o.QueryWorkers < 1 {
		return fmt.Errorf("query_workers must be at least 1, was %d", o.QueryWorkers)
	}
	if o.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, was %d", o.BatchSize)
	}
	if o.Compression != jsonl.CompressionNone && o.Compression != jsonl.CompressionLZ4 {
		return fmt.Errorf("unknown compression %q", o.Compression)
	}
	if !strings.Contains(o.OutputTemplate, "{id}") {
		return fmt.Errorf("output_template %q must contain {id}", o.OutputTemplate)
	}
	if !strings.Contains(o.TableTemplate, "{id}") {
		return fmt.Errorf("table_template %q must contain {id}", o.TableTemplate)
	}
	if _, err := logging.ParseLevel(o.LogLevel); err != nil {
		return err
	}
	if _, err := scheduler.ParseFamilies(o.Families); err != nil {
		return err
	}
	return nil
}

// OutputPath returns the path of the output stream for a partition
func (o *Options) OutputPath(id fanout.PartitionID) string {
	name := id.Expand(o.OutputTemplate)
	if o.Compression == jsonl.CompressionLZ4 && !strings.HasSuffix(name, ".lz4") {
		name += ".lz4"
	}
	return filepath.Join(o.OutputDir, name)
}
