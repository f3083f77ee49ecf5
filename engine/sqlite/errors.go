package sqlite

import (
	"regexp"

	"github.com/go-sif/fanout/errors"
)

var missingIdentifier = regexp.MustCompile(`no such (?:column|table|function): ([^\s()]+)`)

// newQueryError wraps an engine error, extracting the offending identifier from
// "no such column/table/function" messages
func newQueryError(query string, err error) *errors.QueryError {
	qe := &errors.QueryError{Query: query, Err: err}
	if m := missingIdentifier.FindStringSubmatch(err.Error()); m != nil {
		qe.Identifier = m[1]
	}
	return qe
}
