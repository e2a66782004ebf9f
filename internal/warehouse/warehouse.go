package warehouse

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config is the minimal configuration needed to open a warehouse pool.
//
// When to use:
//   - Use Config when constructing a Pool via New.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is backend-specific.
//   - MaxConns <= 0 lets the backend pick its own default.
//
// Errors:
//   - New returns an error if Kind is empty or unsupported.
type Config struct {
	Kind     string
	DSN      string
	MaxConns int
}

// Row is one result row as plain Go values. Backends convert driver specific
// numeric and byte types so callers can compare values without knowing the
// backend.
type Row []any

// Session is a single pooled warehouse connection.
//
// A Session is owned by exactly one task at a time and must be released on
// every path, including errors. Use WithSession rather than calling Release by
// hand.
type Session interface {
	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, sql string) error

	// Query runs a statement and returns every row.
	Query(ctx context.Context, sql string) ([]Row, error)

	// Release returns the connection to the pool. Calling it twice is a no-op.
	Release()
}

// Pool hands out sessions. Implementations must be safe for concurrent use.
type Pool interface {
	Acquire(ctx context.Context) (Session, error)

	// Close releases backend resources. Treat Close as "call once".
	Close()
}

// Factory opens a Pool for a backend kind.
type Factory func(ctx context.Context, cfg Config) (Pool, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers a warehouse backend under a kind (e.g. "redshift", "sqlite").
//
// When to use:
//   - Call Register from an init() function in a backend package.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("warehouse: Register called with empty kind")
	}
	if f == nil {
		panic("warehouse: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("warehouse: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New opens a Pool using the registered backend factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns, marked as a
//     connectivity failure.
func New(ctx context.Context, cfg Config) (Pool, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("warehouse: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported warehouse.kind=%s (registered: %v)", cfg.Kind, Kinds())
	}
	p, err := f(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s warehouse: %w", cfg.Kind, Connectivity(err))
	}
	return p, nil
}

// Kinds returns the registered backend kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// WithSession acquires a session, runs fn and releases the session on every
// path. A failed acquire is reported as a connectivity error.
func WithSession(ctx context.Context, p Pool, fn func(Session) error) error {
	s, err := p.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire warehouse session: %w", Connectivity(err))
	}
	defer s.Release()
	return fn(s)
}
