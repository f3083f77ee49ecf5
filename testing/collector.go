package testing

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-sif/fanout"
)

// RecordCollector is an in-memory RecordWriter which can be made to fail
type RecordCollector struct {
	lock    sync.Mutex
	records []fanout.Record
	FailOn  func(r fanout.Record) bool // if set, Write fails for batches containing a matching record
}

// Write appends records, or none of them
func (c *RecordCollector) Write(records ...fanout.Record) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.FailOn != nil {
		for _, r := range records {
			if c.FailOn(r) {
				return fmt.Errorf("refusing to write %v", r)
			}
		}
	}
	c.records = append(c.records, records...)
	return nil
}

// Records returns a copy of everything written so far, in write order
func (c *RecordCollector) Records() []fanout.Record {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]fanout.Record(nil), c.records...)
}

// Canonical renders records as sorted strings, so that record sets can be compared regardless of order
func Canonical(records []fanout.Record) []string {
	res := make([]string, len(records))
	for i, r := range records {
		keys := make([]string, 0, len(r))
		for k := range r {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		s := ""
		for _, k := range keys {
			s += fmt.Sprintf("%s=%v;", k, r[k])
		}
		res[i] = s
	}
	sort.Strings(res)
	return res
}
