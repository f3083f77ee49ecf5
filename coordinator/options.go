package coordinator

import (
	"github.com/go-kit/log"
	"github.com/go-sif/fanout"
	"github.com/go-sif/fanout/config"
	"github.com/go-sif/fanout/datasource/file"
	"github.com/go-sif/fanout/datasource/parser/dsv"
	"github.com/go-sif/fanout/datasource/parser/jsonl"
	"github.com/go-sif/fanout/datasource/parser/parquet"
	"github.com/go-sif/fanout/engine/sqlite"
	"github.com/go-sif/fanout/internal/stats"
	"github.com/go-sif/fanout/scheduler"
	sink "github.com/go-sif/fanout/sink/jsonl"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
)

// FromOptions assembles a Coordinator reading partitions from files, querying them with SQLite
// and writing line-delimited JSON. Metrics are registered with reg, which may be nil.
// The returned Coordinator owns its Scheduler and must be closed.
func FromOptions(opts *config.Options, logger log.Logger, reg prometheus.Registerer) (*Coordinator, error) {
	families, err := scheduler.ParseFamilies(opts.Families)
	if err != nil {
		return nil, err
	}
	metrics := stats.NewMetrics(reg)
	sched, err := scheduler.CreateScheduler(&scheduler.Conf{
		Workers: opts.QueryWorkers,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return nil, err
	}
	loader := file.CreateDataSource(&file.DataSourceConf{
		Root:         opts.DataRoot,
		PathTemplate: opts.PathTemplate,
		Parsers: []fanout.DataSourceParser{
			parquet.CreateParser(&parquet.ParserConf{BatchSize: opts.BatchSize}),
			jsonl.CreateParser(&jsonl.ParserConf{BatchSize: opts.BatchSize}),
			dsv.CreateParser(&dsv.ParserConf{BatchSize: opts.BatchSize}),
		},
		Logger: logger,
	})
	c, err := CreateCoordinator(&Conf{
		PartitionWorkers: opts.PartitionWorkers,
		Loader:           loader,
		EngineFactory:    sqlite.Factory(&sqlite.EngineConf{MaxConns: opts.QueryWorkers, Logger: logger}),
		Scheduler:        sched,
		Families:         families,
		TableTemplate:    opts.TableTemplate,
		OutputPath:       opts.OutputPath,
		WriterConf:       &sink.WriterConf{Compression: opts.Compression},
		Logger:           logger,
		Metrics:          metrics,
	})
	if err != nil {
		return nil, releaseOnError(err, sched.Release)
	}
	c.OnClose(sched.Release)
	return c, nil
}

// releaseOnError runs release and combines any error it returns with err
func releaseOnError(err error, release func() error) error {
	if rerr := release(); rerr != nil {
		return multierror.Append(err, rerr)
	}
	return err
}
