package loader

import (
	"context"
	"fmt"

	"sparkify/internal/dag"
)

// Mode selects how a dimension table is refreshed.
type Mode string

const (
	// Append inserts the query rows on top of what is there.
	Append Mode = "append"
	// TruncateInsert empties the table first, so a re-run with the same
	// staging data yields the same table.
	TruncateInsert Mode = "truncate-insert"
)

// ParseMode maps a configured insert mode. Empty means Append.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", Append:
		return Append, nil
	case TruncateInsert:
		return TruncateInsert, nil
	default:
		return "", fmt.Errorf("unsupported insert mode %q", s)
	}
}

// Dimension loads one dimension table from a SELECT.
type Dimension struct {
	name    string
	table   string
	columns []string
	query   string
	mode    Mode
	env     Env
}

// NewDimension builds a dimension task. columns may be nil.
func NewDimension(name, table string, columns []string, query string, mode Mode, env Env) (*Dimension, error) {
	if name == "" || table == "" || query == "" {
		return nil, fmt.Errorf("dimension: name, table and query are required")
	}
	if mode != Append && mode != TruncateInsert {
		return nil, fmt.Errorf("dimension %s: unsupported insert mode %q", name, mode)
	}
	if env.Warehouse == nil {
		return nil, fmt.Errorf("dimension %s: nil warehouse", name)
	}
	return &Dimension{name: name, table: table, columns: columns, query: query, mode: mode, env: env}, nil
}

func (d *Dimension) Name() string   { return d.name }
func (d *Dimension) Kind() dag.Kind { return dag.KindLoadDimension }
func (d *Dimension) Mode() Mode     { return d.mode }

// Statements returns what Run issues, in order.
func (d *Dimension) Statements() []string {
	var out []string
	if d.mode == TruncateInsert {
		out = append(out, DeleteAll(d.table))
	}
	return append(out, InsertSelect(d.table, d.columns, d.query))
}

func (d *Dimension) Run(ctx context.Context, run dag.Run) error {
	var stmts []statement
	for _, sql := range d.Statements() {
		stmts = append(stmts, plain(sql))
	}
	return execStatements(ctx, d.env, d.name, stmts)
}
