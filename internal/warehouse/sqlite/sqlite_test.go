package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"sparkify/internal/warehouse"
)

func TestNew_ExecAndQueryRoundTrip(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "wh.db")

	p, err := warehouse.New(ctx, warehouse.Config{Kind: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	err = warehouse.WithSession(ctx, p, func(s warehouse.Session) error {
		if err := s.Exec(ctx, "CREATE TABLE users (userid INTEGER, level TEXT)"); err != nil {
			return err
		}
		return s.Exec(ctx, "INSERT INTO users VALUES (1, 'free'), (2, 'paid')")
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	var rows []warehouse.Row
	err = warehouse.WithSession(ctx, p, func(s warehouse.Session) error {
		var err error
		rows, err = s.Query(ctx, "SELECT COUNT(*), MAX(level) FROM users")
		return err
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 || len(rows[0]) != 2 {
		t.Fatalf("rows=%#v, want one row of two columns", rows)
	}
	if !warehouse.Equal(rows[0][0], 2) {
		t.Fatalf("count=%#v, want 2", rows[0][0])
	}
	if got := warehouse.Normalize(rows[0][1]); got != "paid" {
		t.Fatalf("max(level)=%q, want paid", got)
	}
}

func TestNew_BadStatementIsNotConnectivity(t *testing.T) {
	ctx := context.Background()
	p, err := New(ctx, warehouse.Config{Kind: "sqlite", DSN: filepath.Join(t.TempDir(), "wh.db")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	err = warehouse.WithSession(ctx, p, func(s warehouse.Session) error {
		return s.Exec(ctx, "INSERT INTO missing VALUES (1)")
	})
	if err == nil {
		t.Fatalf("Exec on missing table err=nil, want error")
	}
	if warehouse.IsConnectivity(err) {
		t.Fatalf("IsConnectivity(%v)=true, want false", err)
	}
}
