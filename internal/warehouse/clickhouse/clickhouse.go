package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"

	"sparkify/internal/warehouse"
	"sparkify/internal/warehouse/sqldb"
)

func init() {
	warehouse.Register("clickhouse", New)
}

// New opens a ClickHouse warehouse from a clickhouse:// DSN. LZ4 compression is
// enabled unless the DSN picks another method.
func New(ctx context.Context, cfg warehouse.Config) (warehouse.Pool, error) {
	opts, err := clickhouse.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if opts.Compression == nil {
		opts.Compression = &clickhouse.Compression{Method: clickhouse.CompressionLZ4}
	}
	if cfg.MaxConns > 0 {
		opts.MaxOpenConns = cfg.MaxConns
	}
	return sqldb.Wrap(ctx, clickhouse.OpenDB(opts), cfg.MaxConns)
}
