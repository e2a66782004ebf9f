package sqlite

import (
	"context"

	_ "modernc.org/sqlite"

	"sparkify/internal/warehouse"
	"sparkify/internal/warehouse/sqldb"
)

// SQLite allows one writer at a time. With a single connection, concurrent
// tasks queue on Acquire instead of failing with SQLITE_BUSY.
const defaultMaxConns = 1

func init() {
	warehouse.Register("sqlite", New)
}

// New opens a local SQLite warehouse, used for development runs and tests.
func New(ctx context.Context, cfg warehouse.Config) (warehouse.Pool, error) {
	n := cfg.MaxConns
	if n <= 0 {
		n = defaultMaxConns
	}
	return sqldb.Open(ctx, "sqlite", cfg.DSN, n)
}
