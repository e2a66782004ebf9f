package loader

import (
	"context"
	"fmt"

	"sparkify/internal/dag"
)

// Fact appends the rows of a SELECT over staging tables to the fact table.
type Fact struct {
	name    string
	table   string
	columns []string
	query   string
	env     Env
}

// NewFact builds the fact task. columns may be nil.
func NewFact(name, table string, columns []string, query string, env Env) (*Fact, error) {
	if name == "" || table == "" || query == "" {
		return nil, fmt.Errorf("fact: name, table and query are required")
	}
	if env.Warehouse == nil {
		return nil, fmt.Errorf("fact %s: nil warehouse", name)
	}
	return &Fact{name: name, table: table, columns: columns, query: query, env: env}, nil
}

func (f *Fact) Name() string   { return f.name }
func (f *Fact) Kind() dag.Kind { return dag.KindLoadFact }

func (f *Fact) Run(ctx context.Context, run dag.Run) error {
	return execStatements(ctx, f.env, f.name, []statement{plain(InsertSelect(f.table, f.columns, f.query))})
}
