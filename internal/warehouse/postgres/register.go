package postgres

import "sparkify/internal/warehouse"

func init() {
	warehouse.Register("postgres", New)
	warehouse.Register("redshift", New)
}
