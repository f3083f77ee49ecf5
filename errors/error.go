package errors

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrNoDataFiles occurs when a partition location holds no recognised data files
var ErrNoDataFiles = fmt.Errorf("no data files found")

// ErrFinished occurs when a result sink is written to or finished after it was already finished
var ErrFinished = fmt.Errorf("output stream already finished")

// ErrEngineClosed occurs when a query engine is used after it was closed
var ErrEngineClosed = fmt.Errorf("query engine is closed")

// IOError occurs when a partition location is unreadable or an output stream is unwritable
type IOError struct {
	Op   string
	Path string
	Err  error
}

// Error returns a textual representation of this IOError
func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying cause of this IOError
func (e *IOError) Unwrap() error {
	return e.Err
}

// SchemaError occurs when a partition is empty or its schema cannot be determined
type SchemaError struct {
	Partition int
	Reason    string
}

// Error returns a textual representation of this SchemaError
func (e *SchemaError) Error() string {
	return fmt.Sprintf("partition %d: %s", e.Partition, e.Reason)
}

// QueryError occurs when a query is malformed, references an undefined table or
// column, or fails during execution
type QueryError struct {
	Task       string // the id of the failing task, if known
	Query      string
	Identifier string // the offending identifier, if the engine reported one
	Err        error
}

// Error returns a textual representation of this QueryError
func (e *QueryError) Error() string {
	var res strings.Builder
	if e.Task != "" {
		fmt.Fprintf(&res, "task %s: ", e.Task)
	}
	fmt.Fprint(&res, "query failed")
	if e.Identifier != "" {
		fmt.Fprintf(&res, " on %s", e.Identifier)
	}
	fmt.Fprintf(&res, ": %v", e.Err)
	return res.String()
}

// Unwrap returns the underlying cause of this QueryError
func (e *QueryError) Unwrap() error {
	return e.Err
}

// PartialFailure occurs when one or more query tasks of an otherwise
// successful pipeline have failed
type PartialFailure struct {
	Partition int
	Total     int      // the number of tasks submitted
	Failed    []string // ids of the failed tasks
	Errs      *multierror.Error
}

// Error returns a textual representation of this PartialFailure
func (e *PartialFailure) Error() string {
	return fmt.Sprintf("partition %d: %d of %d query tasks failed: %s", e.Partition, len(e.Failed), e.Total, strings.Join(e.Failed, ", "))
}

// Unwrap returns the individual task errors of this PartialFailure
func (e *PartialFailure) Unwrap() error {
	return e.Errs.ErrorOrNil()
}

// PipelineError occurs when a partition pipeline fails outright. State is the
// pipeline state in which the failure happened.
type PipelineError struct {
	Partition int
	State     string
	Err       error
}

// Error returns a textual representation of this PipelineError
func (e *PipelineError) Error() string {
	return fmt.Sprintf("partition %d failed while %s: %v", e.Partition, e.State, e.Err)
}

// Unwrap returns the underlying cause of this PipelineError
func (e *PipelineError) Unwrap() error {
	return e.Err
}
