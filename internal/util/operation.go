package util

import (
	"context"
	"fmt"

	"github.com/go-sif/fanout"
)

// TaskOperation executes a single QueryTask, producing its Records
type TaskOperation func(ctx context.Context, task fanout.QueryTask) ([]fanout.Record, error)

// SafeTaskOperation wraps a TaskOperation such that panics are recovered and nice error messages are constructed
func SafeTaskOperation(taskOp TaskOperation) (safeTaskOp TaskOperation) {
	return func(ctx context.Context, task fanout.QueryTask) (records []fanout.Record, err error) {
		defer func() {
			if r := recover(); r != nil {
				records = nil
				if anErr, ok := r.(error); ok {
					err = fmt.Errorf("Task Panic: %w\nQuery: %s\n%s", anErr, task.Query, GetTrace())
				} else {
					err = fmt.Errorf("Task Panic: %v\nQuery: %s\n%s", r, task.Query, GetTrace())
				}
			}
		}()
		records, err = taskOp(ctx, task)
		return
	}
}
