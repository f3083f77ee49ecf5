package fanout

// A Record is one row of query output, mapping output column aliases to scalar values.
type Record map[string]interface{}

// RecordWriter is a sink for Records shared by concurrent query tasks.
// Write must be safe for concurrent use, and must append all of the given
// Records as whole, newline-framed entries or none of them.
type RecordWriter interface {
	Write(records ...Record) error
}
