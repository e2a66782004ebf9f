// Package sqldb adapts a database/sql handle to warehouse.Pool. Backends that
// ship a database/sql driver (SQLite, SQL Server, ClickHouse) open their *sql.DB
// and hand it to Wrap.
package sqldb

import (
	"context"
	"database/sql"

	"sparkify/internal/warehouse"
)

// Pool implements warehouse.Pool over *sql.DB. Each session pins one
// *sql.Conn so that statements of a task run on the same connection.
type Pool struct {
	db *sql.DB
}

// Open opens driverName with dsn, applies the connection limit and pings.
// maxConns <= 0 leaves the database/sql default (unlimited).
func Open(ctx context.Context, driverName, dsn string, maxConns int) (*Pool, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return Wrap(ctx, db, maxConns)
}

// Wrap takes ownership of db. On ping failure db is closed.
func Wrap(ctx context.Context, db *sql.DB, maxConns int) (*Pool, error) {
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Pool{db: db}, nil
}

// DB exposes the underlying handle for tests and tooling.
func (p *Pool) DB() *sql.DB { return p.db }

func (p *Pool) Close() { _ = p.db.Close() }

func (p *Pool) Acquire(ctx context.Context) (warehouse.Session, error) {
	c, err := p.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &session{conn: c}, nil
}

type session struct {
	conn *sql.Conn
}

func (s *session) Exec(ctx context.Context, query string) error {
	_, err := s.conn.ExecContext(ctx, query)
	return err
}

func (s *session) Query(ctx context.Context, query string) ([]warehouse.Row, error) {
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []warehouse.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			// Drivers may reuse byte buffers between rows.
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, warehouse.Row(vals))
	}
	return out, rows.Err()
}

func (s *session) Release() {
	if s.conn == nil {
		return
	}
	_ = s.conn.Close()
	s.conn = nil
}
