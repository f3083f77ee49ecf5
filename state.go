package fanout

// PipelineState describes the progress of a single partition pipeline
type PipelineState int

const (
	// Loading indicates that a partition is being read into a Table
	Loading PipelineState = iota
	// Registering indicates that a Table is being registered with a QueryEngine
	Registering
	// FanningOut indicates that query tasks are being executed
	FanningOut
	// Collecting indicates that all tasks have completed and results are being flushed
	Collecting
	// Finished is a terminal state, reached when results were durably written
	Finished
	// Failed is a terminal state, reached when loading, registration or output failed outright
	Failed
)

// String returns a textual representation of this PipelineState
func (s PipelineState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Registering:
		return "registering"
	case FanningOut:
		return "fanning_out"
	case Collecting:
		return "collecting"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true iff no further transitions can occur from this PipelineState
func (s PipelineState) IsTerminal() bool {
	return s == Finished || s == Failed
}
