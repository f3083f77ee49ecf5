package fanout

import "context"

// QueryEngine is a shared execution context holding zero or more registered Tables,
// capable of executing query strings against them.
//
// Register binds a name to a Table for the lifetime of the engine. All registration
// must complete before concurrent queries begin; after that, Execute is safe to call
// from many goroutines at once.
type QueryEngine interface {
	Register(ctx context.Context, name string, t *Table) error
	Execute(ctx context.Context, query string) ([]Record, error)
	Tables() []string
	Close() error
}

// QueryEngineFactory produces a fresh QueryEngine, one per pipeline
type QueryEngineFactory func(ctx context.Context) (QueryEngine, error)
