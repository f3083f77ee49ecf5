package fanout

// A QueryTask is a single aggregate query, executed as an independent unit of work
// against a QueryEngine. QueryTasks are immutable once built.
type QueryTask struct {
	ID     string // unique within a pipeline, e.g. "amount/12"
	Family string // the template family which produced this task
	Index  int    // the index of this task within its family
	Table  string // the registered table queried by this task
	Alias  string // the output column alias of the aggregate
	Query  string // the full query string
}
