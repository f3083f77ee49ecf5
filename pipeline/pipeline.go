package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/fanout"
	"github.com/go-sif/fanout/errors"
	"github.com/go-sif/fanout/internal/stats"
	"github.com/go-sif/fanout/logging"
	"github.com/go-sif/fanout/scheduler"
	"github.com/go-sif/fanout/sink/jsonl"
)

// DefaultTableTemplate names the table a partition is registered as
const DefaultTableTemplate = "pension_history_{id}"

// Conf configures a Pipeline
type Conf struct {
	Partition     fanout.PartitionID
	Loader        fanout.PartitionLoader
	EngineFactory fanout.QueryEngineFactory
	Scheduler     *scheduler.Scheduler // shared by every pipeline of a run
	Families      []scheduler.Family   // query families to fan out. Defaults to scheduler.DefaultFamilies().
	TableTemplate string               // name of the registered table. {id} is replaced by the partition id. Defaults to DefaultTableTemplate.
	OutputPath    string               // destination of the output stream
	WriterConf    *jsonl.WriterConf
	Logger        log.Logger
	Metrics       *stats.Metrics // optional, defaults to unregistered Metrics
}

// Result describes the outcome of a Pipeline
type Result struct {
	Partition  fanout.PartitionID
	State      fanout.PipelineState // the terminal state of the Pipeline
	Rows       int                  // the number of rows loaded
	Tasks      *scheduler.Result    // nil if the Pipeline failed before fanning out
	Output     *jsonl.Summary       // nil unless the Pipeline finished
	Statistics *stats.RunStatistics
}

// Pipeline processes one partition. A Pipeline is run at most once.
type Pipeline struct {
	conf    Conf
	lock    sync.Mutex
	state   fanout.PipelineState
	ran     bool
	stats   *stats.RunStatistics
	logger  log.Logger
	metrics *stats.Metrics
}

// CreatePipeline is a factory for Pipelines
func CreatePipeline(conf *Conf) (*Pipeline, error) {
	if conf == nil {
		return nil, fmt.Errorf("pipeline configuration must not be nil")
	}
	if conf.Loader == nil || conf.EngineFactory == nil || conf.Scheduler == nil {
		return nil, fmt.Errorf("pipeline for partition %d requires a loader, an engine factory and a scheduler", conf.Partition)
	}
	if len(conf.OutputPath) == 0 {
		return nil, fmt.Errorf("pipeline for partition %d requires an output path", conf.Partition)
	}
	c := *conf
	if len(c.Families) == 0 {
		c.Families = scheduler.DefaultFamilies()
	}
	if len(c.TableTemplate) == 0 {
		c.TableTemplate = DefaultTableTemplate
	}
	metrics := c.Metrics
	if metrics == nil {
		metrics = stats.NewMetrics(nil)
	}
	return &Pipeline{
		conf:    c,
		state:   fanout.Loading,
		stats:   &stats.RunStatistics{},
		logger:  log.With(logging.OrNop(c.Logger), "partition", int(c.Partition)),
		metrics: metrics,
	}, nil
}

// Partition returns the id of the partition processed by this Pipeline
func (p *Pipeline) Partition() fanout.PartitionID {
	return p.conf.Partition
}

// TableName returns the name this Pipeline registers its partition as
func (p *Pipeline) TableName() string {
	return p.conf.Partition.Expand(p.conf.TableTemplate)
}

// State returns the current state of this Pipeline
func (p *Pipeline) State() fanout.PipelineState {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.state
}

// Statistics returns the RunStatistics of this Pipeline
func (p *Pipeline) Statistics() *stats.RunStatistics {
	return p.stats
}

func (p *Pipeline) transition(next fanout.PipelineState) {
	p.lock.Lock()
	prev := p.state
	p.state = next
	p.lock.Unlock()
	if !next.IsTerminal() {
		p.stats.StartPhase(next)
	}
	level.Debug(p.logger).Log("msg", "pipeline state changed", "from", prev.String(), "to", next.String())
}

// fail moves this Pipeline into the Failed state, attributing err to the state it failed in
func (p *Pipeline) fail(result *Result, err error) (*Result, error) {
	failedIn := p.State()
	p.transition(fanout.Failed)
	p.stats.Finish()
	result.State = fanout.Failed
	p.metrics.Pipelines.WithLabelValues(fanout.Failed.String()).Inc()
	p.metrics.PipelineDuration.Observe(p.stats.GetRuntime().Seconds())
	level.Error(p.logger).Log("msg", "pipeline failed", "state", failedIn.String(), "err", err)
	return result, &errors.PipelineError{Partition: int(p.conf.Partition), State: failedIn.String(), Err: err}
}

// Run loads the partition, registers it with a fresh QueryEngine, fans out every query task
// and collects their records into the output stream. The output stream is only created once
// the partition has been loaded and registered.
//
// A *errors.PipelineError is returned if the Pipeline failed outright, in which case no output
// is produced. A *errors.PartialFailure is returned if the Pipeline finished but some of its
// tasks failed.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	p.lock.Lock()
	if p.ran {
		p.lock.Unlock()
		return nil, fmt.Errorf("pipeline for partition %d has already been run", p.conf.Partition)
	}
	p.ran = true
	p.lock.Unlock()

	id := p.conf.Partition
	result := &Result{Partition: id, Statistics: p.stats}
	p.stats.Start()
	level.Info(p.logger).Log("msg", "loading partition")

	table, err := p.conf.Loader.Load(ctx, id)
	if err != nil {
		return p.fail(result, err)
	}
	result.Rows = table.NumRows()
	p.stats.AddRowsLoaded(table.NumRows())
	p.metrics.RowsLoaded.Add(float64(table.NumRows()))

	p.transition(fanout.Registering)
	engine, err := p.conf.EngineFactory(ctx)
	if err != nil {
		return p.fail(result, err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			level.Warn(p.logger).Log("msg", "failed to close query engine", "err", err)
		}
	}()
	tableName := p.TableName()
	if err := engine.Register(ctx, tableName, table); err != nil {
		return p.fail(result, err)
	}
	level.Info(p.logger).Log("msg", "registered partition", "table", tableName, "rows", table.NumRows())

	writer, err := jsonl.Create(p.conf.OutputPath, p.conf.WriterConf)
	if err != nil {
		return p.fail(result, err)
	}
	defer writer.Abort()

	p.transition(fanout.FanningOut)
	tasks := scheduler.BuildTasks(tableName, p.conf.Families...)
	level.Info(p.logger).Log("msg", "fanning out query tasks", "tasks", len(tasks))
	taskResult, taskErr := p.conf.Scheduler.Run(ctx, engine, tasks, writer)
	result.Tasks = taskResult
	p.stats.AddTasks(taskResult.Succeeded, taskResult.Failed, taskResult.Records)

	p.transition(fanout.Collecting)
	summary, err := writer.Finish()
	if err != nil {
		return p.fail(result, err)
	}
	result.Output = summary

	p.transition(fanout.Finished)
	p.stats.Finish()
	result.State = fanout.Finished
	p.metrics.Pipelines.WithLabelValues(fanout.Finished.String()).Inc()
	p.metrics.PipelineDuration.Observe(p.stats.GetRuntime().Seconds())
	level.Info(p.logger).Log(
		"msg", "pipeline finished",
		"output", summary.Path,
		"records", summary.Records,
		"failed_tasks", taskResult.Failed,
		"duration", p.stats.GetRuntime(),
	)

	if pf, ok := taskErr.(*errors.PartialFailure); ok {
		pf.Partition = int(id)
		return result, pf
	}
	return result, taskErr
}
