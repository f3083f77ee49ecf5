package testing

import "go.uber.org/goleak"

// IgnoreWorkerPool returns goleak options ignoring the housekeeping goroutines of the
// package-level pool ants starts at init, which live for the whole process
func IgnoreWorkerPool() []goleak.Option {
	return []goleak.Option{
		goleak.IgnoreTopFunction("github.com/panjf2000/ants/v2.(*poolCommon).purgeStaleWorkers"),
		goleak.IgnoreTopFunction("github.com/panjf2000/ants/v2.(*poolCommon).ticktock"),
	}
}
