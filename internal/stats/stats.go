package stats

import (
	"sync"
	"time"

	"github.com/go-sif/fanout"
)

const numPhases = int(fanout.Failed) + 1

// RunStatistics contains statistics about a running partition pipeline
type RunStatistics struct {
	lock              sync.Mutex
	started           bool
	finished          bool
	startTime         time.Time
	totalRuntime      time.Duration
	phaseRuntimes     []time.Duration // indexed by fanout.PipelineState
	currentPhase      fanout.PipelineState
	currentPhaseStart time.Time
	rowsLoaded        int64
	tasksSucceeded    int64
	tasksFailed       int64
	recordsWritten    int64
}

// Start triggers statistics tracking, if it hasn't been started already
func (rs *RunStatistics) Start() {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if !rs.started {
		rs.started = true
		rs.startTime = time.Now()
		rs.phaseRuntimes = make([]time.Duration, numPhases)
		rs.currentPhase = fanout.Loading
		rs.currentPhaseStart = rs.startTime
	}
}

// StartPhase closes the timer of the current phase and opens one for the next
func (rs *RunStatistics) StartPhase(phase fanout.PipelineState) {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if !rs.started || rs.finished {
		return
	}
	now := time.Now()
	rs.phaseRuntimes[rs.currentPhase] += now.Sub(rs.currentPhaseStart)
	rs.currentPhase = phase
	rs.currentPhaseStart = now
}

// Finish completes statistics tracking
func (rs *RunStatistics) Finish() {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if !rs.started || rs.finished {
		return
	}
	now := time.Now()
	rs.phaseRuntimes[rs.currentPhase] += now.Sub(rs.currentPhaseStart)
	rs.totalRuntime = now.Sub(rs.startTime)
	rs.finished = true
}

// AddRowsLoaded tracks rows read from a partition
func (rs *RunStatistics) AddRowsLoaded(n int) {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	rs.rowsLoaded += int64(n)
}

// AddTasks tracks the outcome of a fan-out
func (rs *RunStatistics) AddTasks(succeeded int, failed int, records int) {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	rs.tasksSucceeded += int64(succeeded)
	rs.tasksFailed += int64(failed)
	rs.recordsWritten += int64(records)
}

// GetStartTime returns the start time of the pipeline
func (rs *RunStatistics) GetStartTime() time.Time {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.startTime
}

// GetRuntime returns the running time of the pipeline
func (rs *RunStatistics) GetRuntime() time.Duration {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if rs.finished {
		return rs.totalRuntime
	}
	if !rs.started {
		return 0
	}
	return time.Since(rs.startTime)
}

// GetPhaseRuntime returns the total time spent in a given phase
func (rs *RunStatistics) GetPhaseRuntime(phase fanout.PipelineState) time.Duration {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if !rs.started {
		return 0
	}
	d := rs.phaseRuntimes[phase]
	if !rs.finished && phase == rs.currentPhase {
		d += time.Since(rs.currentPhaseStart)
	}
	return d
}

// GetNumRowsLoaded returns the number of rows loaded so far
func (rs *RunStatistics) GetNumRowsLoaded() int64 {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.rowsLoaded
}

// GetTaskCounts returns the number of succeeded and failed query tasks
func (rs *RunStatistics) GetTaskCounts() (succeeded int64, failed int64) {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.tasksSucceeded, rs.tasksFailed
}

// GetNumRecordsWritten returns the number of result records written
func (rs *RunStatistics) GetNumRecordsWritten() int64 {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.recordsWritten
}
