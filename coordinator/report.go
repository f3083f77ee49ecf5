package coordinator

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/fanout"
	"github.com/go-sif/fanout/errors"
	"github.com/go-sif/fanout/internal/util"
	"github.com/go-sif/fanout/pipeline"
	"github.com/hashicorp/go-multierror"
)

// Outcome is the outcome of a single partition pipeline
type Outcome struct {
	Partition fanout.PartitionID
	State     fanout.PipelineState
	Start     time.Time        // when the pipeline started loading
	Elapsed   time.Duration    // the running time of the pipeline
	Result    *pipeline.Result // nil if the pipeline could not be created
	Err       error            // nil, a *errors.PipelineError or a *errors.PartialFailure
}

// Report describes a whole run, once every pipeline has finished
type Report struct {
	RunID           string
	Start           time.Time
	End             time.Time
	Elapsed         time.Duration
	Outcomes        []*Outcome // ordered by partition
	FailedPipelines int        // pipelines which did not finish
	FailedTasks     int        // query tasks which failed, across finished pipelines
	Records         int        // records written, across finished pipelines
	Bytes           int64      // uncompressed bytes written, across finished pipelines
}

func (r *Report) summarize() {
	for _, o := range r.Outcomes {
		if o.State != fanout.Finished {
			r.FailedPipelines++
			continue
		}
		if o.Result == nil {
			continue
		}
		if o.Result.Tasks != nil {
			r.FailedTasks += o.Result.Tasks.Failed
		}
		if o.Result.Output != nil {
			r.Records += o.Result.Output.Records
			r.Bytes += o.Result.Output.Bytes
		}
	}
}

// Succeeded returns true iff every pipeline finished and every task succeeded
func (r *Report) Succeeded() bool {
	return r.FailedPipelines == 0 && r.FailedTasks == 0
}

// Err aggregates the errors of every pipeline which failed or partially failed,
// or returns nil if the run fully succeeded
func (r *Report) Err() error {
	var errs *multierror.Error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = multierror.Append(errs, o.Err)
		}
	}
	return errs.ErrorOrNil()
}

// PartialFailures returns the partial failures of pipelines which finished with failed tasks
func (r *Report) PartialFailures() []*errors.PartialFailure {
	var res []*errors.PartialFailure
	for _, o := range r.Outcomes {
		if pf, ok := o.Err.(*errors.PartialFailure); ok {
			res = append(res, pf)
		}
	}
	return res
}

// Log writes a summary of this Report
func (r *Report) Log(logger log.Logger) {
	for _, o := range r.Outcomes {
		level.Debug(logger).Log("msg", "partition outcome", "partition", int(o.Partition), "state", o.State.String(), "start", o.Start.Format(time.RFC3339Nano), "elapsed", o.Elapsed)
		if o.Err != nil {
			level.Warn(logger).Log("msg", "partition did not fully succeed", "partition", int(o.Partition), "state", o.State.String(), "err", o.Err)
		}
		if pf, ok := o.Err.(*errors.PartialFailure); ok && pf.Errs != nil {
			level.Debug(logger).Log("msg", "failed tasks", "partition", int(o.Partition), "errors", util.FormatMultiError(pf.Errs.Errors))
		}
	}
	lvl := level.Info(logger)
	if !r.Succeeded() {
		lvl = level.Warn(logger)
	}
	lvl.Log(
		"msg", "run finished",
		"partitions", len(r.Outcomes),
		"failed_partitions", r.FailedPipelines,
		"failed_tasks", r.FailedTasks,
		"records", r.Records,
		"written", humanize.Bytes(uint64(r.Bytes)),
		"elapsed", r.Elapsed,
	)
}
