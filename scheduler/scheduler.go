package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/fanout"
	"github.com/go-sif/fanout/errors"
	"github.com/go-sif/fanout/internal/stats"
	"github.com/go-sif/fanout/internal/util"
	"github.com/go-sif/fanout/logging"
	"github.com/hashicorp/go-multierror"
	"github.com/panjf2000/ants/v2"
)

// DefaultWorkers is the default size of a Scheduler's worker pool
const DefaultWorkers = 64

// Conf configures a Scheduler
type Conf struct {
	Workers        int           // the maximum number of query tasks executing at once, across all Runs. Defaults to DefaultWorkers.
	ReleaseTimeout time.Duration // how long Release waits for busy workers. Defaults to 3 seconds.
	Logger         log.Logger
	Metrics        *stats.Metrics // optional, defaults to unregistered Metrics
}

// Result describes the outcome of a single Run
type Result struct {
	Total       int      // the number of tasks submitted
	Succeeded   int      // the number of tasks which wrote their records
	Failed      int      // the number of tasks which failed
	Records     int      // the number of records written
	FailedTasks []string // ids of failed tasks, in completion order
	Elapsed     time.Duration
}

// Scheduler executes QueryTasks concurrently on a bounded pool of workers.
// A single Scheduler may be shared by many concurrent Runs, which then share its workers.
type Scheduler struct {
	pool           *ants.Pool
	releaseTimeout time.Duration
	logger         log.Logger
	metrics        *stats.Metrics
}

// CreateScheduler is a factory for Schedulers
func CreateScheduler(conf *Conf) (*Scheduler, error) {
	if conf == nil {
		conf = &Conf{}
	}
	workers := conf.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	releaseTimeout := conf.ReleaseTimeout
	if releaseTimeout <= 0 {
		releaseTimeout = 3 * time.Second
	}
	logger := logging.OrNop(conf.Logger)
	metrics := conf.Metrics
	if metrics == nil {
		metrics = stats.NewMetrics(nil)
	}
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(v interface{}) {
		level.Error(logger).Log("msg", "query worker panic", "err", fmt.Sprintf("%v", v))
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return &Scheduler{
		pool:           pool,
		releaseTimeout: releaseTimeout,
		logger:         logger,
		metrics:        metrics,
	}, nil
}

// Workers returns the size of the worker pool
func (s *Scheduler) Workers() int {
	return s.pool.Cap()
}

// Release stops the worker pool. Runs must not be started afterwards.
func (s *Scheduler) Release() error {
	return s.pool.ReleaseTimeout(s.releaseTimeout)
}

// Run executes every task against engine, writing each task's records to writer, and
// returns once all tasks have completed. Tasks run independently: a failed task is logged
// and counted, and never stops its siblings. If any task failed, the returned error is an
// *errors.PartialFailure. The context is not used to abort tasks once submitted.
func (s *Scheduler) Run(ctx context.Context, engine fanout.QueryEngine, tasks []fanout.QueryTask, writer fanout.RecordWriter) (*Result, error) {
	start := time.Now()
	ctx = context.WithoutCancel(ctx)
	var (
		wg     sync.WaitGroup
		lock   sync.Mutex
		result = &Result{Total: len(tasks)}
		errs   *multierror.Error
	)
	// outcome records exactly one outcome per task
	outcome := func(task fanout.QueryTask, written int, err error) {
		lock.Lock()
		defer lock.Unlock()
		if err != nil {
			result.Failed++
			result.FailedTasks = append(result.FailedTasks, task.ID)
			errs = multierror.Append(errs, err)
			s.metrics.QueryTasks.WithLabelValues("failed").Inc()
			level.Error(s.logger).Log("msg", "query task failed", "task", task.ID, "err", err)
			return
		}
		result.Succeeded++
		result.Records += written
		s.metrics.QueryTasks.WithLabelValues("succeeded").Inc()
		s.metrics.RecordsWritten.Add(float64(written))
		level.Debug(s.logger).Log("msg", "query task finished", "task", task.ID, "records", written)
	}
	execute := util.SafeTaskOperation(func(ctx context.Context, task fanout.QueryTask) ([]fanout.Record, error) {
		return runTask(ctx, engine, task, writer)
	})

	for _, task := range tasks {
		task := task
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			records, err := execute(ctx, task)
			if err != nil {
				err = asTaskError(task, err)
			}
			outcome(task, len(records), err)
		})
		if err != nil {
			wg.Done()
			outcome(task, 0, &errors.QueryError{Task: task.ID, Query: task.Query, Err: fmt.Errorf("failed to submit task: %w", err)})
		}
	}
	wg.Wait()
	result.Elapsed = time.Since(start)

	if result.Failed > 0 {
		return result, &errors.PartialFailure{
			Total:  result.Total,
			Failed: append([]string(nil), result.FailedTasks...),
			Errs:   errs,
		}
	}
	return result, nil
}

// runTask executes a single task and writes its records, returning the records written
func runTask(ctx context.Context, engine fanout.QueryEngine, task fanout.QueryTask, writer fanout.RecordWriter) ([]fanout.Record, error) {
	records, err := engine.Execute(ctx, task.Query)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("query produced no rows")
	}
	if err := writer.Write(records...); err != nil {
		return nil, fmt.Errorf("failed to write records: %w", err)
	}
	return records, nil
}

// asTaskError attributes an error to a task, preserving any identifier reported by the engine
func asTaskError(task fanout.QueryTask, err error) error {
	if qErr, ok := err.(*errors.QueryError); ok {
		attributed := *qErr
		attributed.Task = task.ID
		if len(attributed.Query) == 0 {
			attributed.Query = task.Query
		}
		return &attributed
	}
	return &errors.QueryError{Task: task.ID, Query: task.Query, Err: err}
}
