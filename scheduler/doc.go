// Package scheduler builds families of aggregate QueryTasks and fans them out over a
// bounded pool of workers, collecting each task's Records into a shared RecordWriter.
package scheduler
