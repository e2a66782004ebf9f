// Package warehousetest provides an in-memory warehouse.Pool that records
// statements, for tests of code that talks to a warehouse.
package warehousetest

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"sparkify/internal/warehouse"
)

// Pool is a scriptable fake. Zero value is ready to use.
//
// ExecErr is returned for any statement containing the key. QueryRows is
// returned for a query equal to the key (after trimming).
type Pool struct {
	AcquireErr error
	ExecErr    map[string]error
	QueryRows  map[string][]warehouse.Row
	QueryErr   map[string]error

	acquired atomic.Int64
	released atomic.Int64

	mu   sync.Mutex
	stmt []string
}

func (p *Pool) Acquire(ctx context.Context) (warehouse.Session, error) {
	if p.AcquireErr != nil {
		return nil, p.AcquireErr
	}
	p.acquired.Add(1)
	return &session{pool: p}, nil
}

func (p *Pool) Close() {}

// Statements returns every executed or queried statement in call order.
func (p *Pool) Statements() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.stmt...)
}

// Acquired and Released count session checkouts and returns.
func (p *Pool) Acquired() int64 { return p.acquired.Load() }
func (p *Pool) Released() int64 { return p.released.Load() }

func (p *Pool) record(sql string) {
	p.mu.Lock()
	p.stmt = append(p.stmt, sql)
	p.mu.Unlock()
}

type session struct {
	pool     *Pool
	released bool
}

func (s *session) Exec(ctx context.Context, sql string) error {
	s.pool.record(sql)
	for k, err := range s.pool.ExecErr {
		if strings.Contains(sql, k) {
			return err
		}
	}
	return nil
}

func (s *session) Query(ctx context.Context, sql string) ([]warehouse.Row, error) {
	s.pool.record(sql)
	key := strings.TrimSpace(sql)
	if err := s.pool.QueryErr[key]; err != nil {
		return nil, err
	}
	return s.pool.QueryRows[key], nil
}

func (s *session) Release() {
	if s.released {
		return
	}
	s.released = true
	s.pool.released.Add(1)
}
