// Package quality runs scalar data quality checks against the warehouse and
// fails only after every check has been evaluated.
package quality

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"sparkify/internal/dag"
	"sparkify/internal/warehouse"
)

// Check is a query whose first column of the first row must equal Expected.
type Check struct {
	SQL      string
	Expected any
}

// Reason explains why a check failed.
type Reason string

const (
	// NoData: no rows, an empty first row, or a first column that is null,
	// false, zero or empty.
	NoData Reason = "no data returned"
	// Mismatch: the first column differs from the expected value.
	Mismatch Reason = "value mismatch"
)

// Failure is one failed check.
type Failure struct {
	SQL      string
	Reason   Reason
	Expected any
	Actual   any
}

// Error aggregates every failed check of one validation.
type Error struct {
	Failures []Failure
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "data quality checks failed (%d):", len(e.Failures))
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "\n  - %s: %s", f.Reason, oneLine(f.SQL))
		if f.Reason == Mismatch {
			fmt.Fprintf(&b, " (expected %v, got %v)", f.Expected, f.Actual)
		}
	}
	return b.String()
}

// Queries returns the failed queries in check order.
func (e *Error) Queries() []string {
	out := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f.SQL
	}
	return out
}

// Validator is the data quality task.
type Validator struct {
	name   string
	checks []Check
	pool   warehouse.Pool
	log    *zap.Logger
}

// NewValidator builds the task. A nil or empty check list is allowed and
// always passes.
func NewValidator(name string, checks []Check, pool warehouse.Pool, log *zap.Logger) (*Validator, error) {
	if name == "" {
		return nil, fmt.Errorf("quality: name is required")
	}
	if pool == nil {
		return nil, fmt.Errorf("quality %s: nil warehouse", name)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{name: name, checks: append([]Check(nil), checks...), pool: pool, log: log}, nil
}

func (v *Validator) Name() string   { return v.name }
func (v *Validator) Kind() dag.Kind { return dag.KindValidate }

// Run evaluates every check in order. Query errors abort the attempt; check
// failures are collected and returned together as *Error.
func (v *Validator) Run(ctx context.Context, run dag.Run) error {
	if len(v.checks) == 0 {
		v.log.Info("no test cases", zap.String("task", v.name))
		return nil
	}

	var failures []Failure
	err := warehouse.WithSession(ctx, v.pool, func(s warehouse.Session) error {
		for _, c := range v.checks {
			rows, err := s.Query(ctx, c.SQL)
			if err != nil {
				return fmt.Errorf("task %s: check query %q: %w", v.name, oneLine(c.SQL), err)
			}
			if f, ok := Evaluate(c, rows); !ok {
				v.log.Error("check failed",
					zap.String("task", v.name),
					zap.String("sql", oneLine(c.SQL)),
					zap.String("reason", string(f.Reason)),
					zap.Any("expected", f.Expected),
					zap.Any("actual", f.Actual))
				failures = append(failures, f)
				continue
			}
			v.log.Info("check passed", zap.String("task", v.name), zap.String("sql", oneLine(c.SQL)))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(failures) > 0 {
		return &Error{Failures: failures}
	}
	v.log.Info("all checks passed", zap.String("task", v.name), zap.Int("checks", len(v.checks)))
	return nil
}

// Evaluate decides one check from its result rows. ok is false when the
// check failed; the Failure then says why.
func Evaluate(c Check, rows []warehouse.Row) (f Failure, ok bool) {
	f = Failure{SQL: c.SQL, Expected: c.Expected}
	if len(rows) == 0 || len(rows[0]) == 0 || !warehouse.Truthy(rows[0][0]) {
		f.Reason = NoData
		if len(rows) > 0 && len(rows[0]) > 0 {
			f.Actual = rows[0][0]
		}
		return f, false
	}
	f.Actual = rows[0][0]
	if !warehouse.Equal(f.Actual, c.Expected) {
		f.Reason = Mismatch
		return f, false
	}
	return f, true
}

func oneLine(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
