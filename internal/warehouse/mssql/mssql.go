package mssql

import (
	"context"

	_ "github.com/microsoft/go-mssqldb"

	"sparkify/internal/warehouse"
	"sparkify/internal/warehouse/sqldb"
)

// Conservative default for ETL-style bursty loads.
const defaultMaxConns = 64

func init() {
	warehouse.Register("mssql", New)
}

// New opens a SQL Server (or Azure Synapse) warehouse through the "sqlserver"
// driver.
func New(ctx context.Context, cfg warehouse.Config) (warehouse.Pool, error) {
	n := cfg.MaxConns
	if n <= 0 {
		n = defaultMaxConns
	}
	return sqldb.Open(ctx, "sqlserver", cfg.DSN, n)
}
