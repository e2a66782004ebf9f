package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"sparkify/internal/warehouse"
)

/*
Pool implements warehouse.Pool on a pgx connection pool.

Redshift speaks the Postgres wire protocol, so the same backend serves both
kinds. For kind "redshift" the pool uses the simple query protocol, since
Redshift does not support every extended-protocol feature pgx relies on for
statement caching.
*/
type Pool struct {
	pool *pgxpool.Pool
}

// New opens a pgx pool for cfg.DSN and verifies it with a ping.
func New(ctx context.Context, cfg warehouse.Config) (warehouse.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.Kind == "redshift" {
		pcfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Pool{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() { p.pool.Close() }

// Acquire checks out one connection for the caller's exclusive use.
func (p *Pool) Acquire(ctx context.Context) (warehouse.Session, error) {
	c, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &session{conn: c}, nil
}

type session struct {
	conn *pgxpool.Conn
}

func (s *session) Exec(ctx context.Context, sql string) error {
	_, err := s.conn.Exec(ctx, sql)
	return err
}

func (s *session) Query(ctx context.Context, sql string) ([]warehouse.Row, error) {
	rows, err := s.conn.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []warehouse.Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		out = append(out, plainRow(vals))
	}
	return out, rows.Err()
}

func (s *session) Release() {
	if s.conn == nil {
		return
	}
	s.conn.Release()
	s.conn = nil
}

// plainRow replaces pgtype wrappers with plain Go values.
func plainRow(vals []any) warehouse.Row {
	row := make(warehouse.Row, len(vals))
	for i, v := range vals {
		row[i] = plainValue(v)
	}
	return row
}

func plainValue(v any) any {
	switch t := v.(type) {
	case pgtype.Numeric:
		if !t.Valid {
			return nil
		}
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return fmt.Sprintf("%x", t[:])
	default:
		return v
	}
}
