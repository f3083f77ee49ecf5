package coordinator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/fanout"
	"github.com/go-sif/fanout/errors"
	"github.com/go-sif/fanout/internal/stats"
	"github.com/go-sif/fanout/logging"
	"github.com/go-sif/fanout/pipeline"
	"github.com/go-sif/fanout/scheduler"
	"github.com/go-sif/fanout/sink/jsonl"
	uuid "github.com/gofrs/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultPartitionWorkers is the default number of partitions processed at once
const DefaultPartitionWorkers = 10

// Conf configures a Coordinator
type Conf struct {
	PartitionWorkers int // the maximum number of partitions processed at once. Defaults to DefaultPartitionWorkers.
	Loader           fanout.PartitionLoader
	EngineFactory    fanout.QueryEngineFactory
	Scheduler        *scheduler.Scheduler               // shared by every pipeline
	Families         []scheduler.Family                 // defaults to scheduler.DefaultFamilies()
	TableTemplate    string                             // defaults to pipeline.DefaultTableTemplate
	OutputPath       func(id fanout.PartitionID) string // [REQUIRED] locates the output stream of a partition
	WriterConf       *jsonl.WriterConf
	Logger           log.Logger
	Metrics          *stats.Metrics
}

// Coordinator spawns and joins partition pipelines
type Coordinator struct {
	conf    Conf
	logger  log.Logger
	closers []func() error
}

// CreateCoordinator is a factory for Coordinators
func CreateCoordinator(conf *Conf) (*Coordinator, error) {
	if conf == nil {
		return nil, fmt.Errorf("coordinator configuration must not be nil")
	}
	if conf.Loader == nil || conf.EngineFactory == nil || conf.Scheduler == nil || conf.OutputPath == nil {
		return nil, fmt.Errorf("coordinator requires a loader, an engine factory, a scheduler and an output path")
	}
	c := *conf
	if c.PartitionWorkers <= 0 {
		c.PartitionWorkers = DefaultPartitionWorkers
	}
	if c.Metrics == nil {
		c.Metrics = stats.NewMetrics(nil)
	}
	return &Coordinator{conf: c, logger: logging.OrNop(c.Logger)}, nil
}

// Partitions enumerates partition ids 1..n
func Partitions(n int) []fanout.PartitionID {
	ids := make([]fanout.PartitionID, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, fanout.PartitionID(i))
	}
	return ids
}

// Run processes every partition and blocks until all of their pipelines have finished.
// Pipelines are independent: the failure of one never stops its siblings.
func (c *Coordinator) Run(ctx context.Context, ids []fanout.PartitionID) *Report {
	runID, err := uuid.NewV4()
	report := &Report{Start: time.Now()}
	if err == nil {
		report.RunID = runID.String()
	}
	logger := log.With(c.logger, "run", report.RunID)
	level.Info(logger).Log("msg", "starting run", "partitions", len(ids), "partition_workers", c.conf.PartitionWorkers, "query_workers", c.conf.Scheduler.Workers())

	var lock sync.Mutex
	outcomes := make([]*Outcome, 0, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.conf.PartitionWorkers)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			outcome := c.runPipeline(gctx, logger, id)
			lock.Lock()
			outcomes = append(outcomes, outcome)
			lock.Unlock()
			// pipeline failures are reported, never returned, so that siblings are not cancelled
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Partition < outcomes[j].Partition })
	report.Outcomes = outcomes
	report.End = time.Now()
	report.Elapsed = report.End.Sub(report.Start)
	report.summarize()
	report.Log(logger)
	return report
}

func (c *Coordinator) runPipeline(ctx context.Context, logger log.Logger, id fanout.PartitionID) *Outcome {
	outcome := &Outcome{Partition: id, State: fanout.Failed, Start: time.Now()}
	p, err := pipeline.CreatePipeline(&pipeline.Conf{
		Partition:     id,
		Loader:        c.conf.Loader,
		EngineFactory: c.conf.EngineFactory,
		Scheduler:     c.conf.Scheduler,
		Families:      c.conf.Families,
		TableTemplate: c.conf.TableTemplate,
		OutputPath:    c.conf.OutputPath(id),
		WriterConf:    c.conf.WriterConf,
		Logger:        logger,
		Metrics:       c.conf.Metrics,
	})
	if err != nil {
		outcome.Err = &errors.PipelineError{Partition: int(id), State: fanout.Loading.String(), Err: err}
		c.conf.Metrics.Pipelines.WithLabelValues(fanout.Failed.String()).Inc()
		level.Error(logger).Log("msg", "could not create pipeline", "partition", int(id), "err", err)
		return outcome
	}
	result, err := p.Run(ctx)
	outcome.Result = result
	outcome.Err = err
	if result != nil {
		outcome.State = result.State
		outcome.Start = result.Statistics.GetStartTime()
		outcome.Elapsed = result.Statistics.GetRuntime()
	}
	return outcome
}

// OnClose registers a function to be called when this Coordinator is closed
func (c *Coordinator) OnClose(fn func() error) {
	c.closers = append(c.closers, fn)
}

// Close releases resources owned by this Coordinator, in reverse order of registration
func (c *Coordinator) Close() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}
