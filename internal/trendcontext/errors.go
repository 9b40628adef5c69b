package trendcontext

import (
	"fmt"
	"strings"
)

// InvalidTaskError reports an unrecognized task name passed to the
// optimizer. This is a caller bug, not a data-quality condition, and it
// always names the offending value and the valid set.
type InvalidTaskError struct {
	Task  Task
	Valid []Task
}

func (e *InvalidTaskError) Error() string {
	valid := make([]string, len(e.Valid))
	for i, t := range e.Valid {
		valid[i] = string(t)
	}
	return fmt.Sprintf("unknown task %q (valid tasks: %s)", e.Task, strings.Join(valid, ", "))
}

// MalformedRecordError reports a record that violates the minimal
// structural contract, as opposed to one that is merely sparse.
type MalformedRecordError struct {
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed trends record: %s: %s", e.Field, e.Reason)
}
