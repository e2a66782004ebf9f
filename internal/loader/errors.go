package loader

import (
	"fmt"
	"strings"

	"sparkify/internal/warehouse"
)

// Class tells operators where a task failure came from.
type Class string

const (
	// ClassConnectivity means the warehouse could not be reached or refused
	// the session. Usually transient.
	ClassConnectivity Class = "connectivity"
	// ClassData means the warehouse rejected a statement: missing table,
	// malformed source files, type errors.
	ClassData Class = "data"
)

// StatementError is returned when a task's statement fails. SQL is always
// redacted.
type StatementError struct {
	Task  string
	Class Class
	SQL   string
	Err   error

	secrets []string
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("task %s: %s error executing %s: %s",
		e.Task, e.Class, abbreviate(e.SQL), redact(e.Err.Error(), e.secrets))
}

func (e *StatementError) Unwrap() error { return e.Err }

func newStatementError(task, sql string, err error, secrets []string) *StatementError {
	class := ClassData
	if warehouse.IsConnectivity(err) {
		class = ClassConnectivity
	}
	return &StatementError{Task: task, Class: class, SQL: redact(sql, secrets), Err: err, secrets: secrets}
}

// abbreviate collapses whitespace and keeps long statements readable in logs.
func abbreviate(sql string) string {
	const max = 240
	s := strings.Join(strings.Fields(sql), " ")
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
