package warehouse_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"sparkify/internal/warehouse"
	"sparkify/internal/warehouse/warehousetest"
)

func TestRegister_PanicsOnBadInput(t *testing.T) {
	f := func(ctx context.Context, cfg warehouse.Config) (warehouse.Pool, error) { return nil, nil }

	cases := []struct {
		name string
		kind string
		f    warehouse.Factory
	}{
		{"empty kind", "", f},
		{"nil factory", "test-nil-factory", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatalf("Register(%q) did not panic", tc.kind)
				}
			}()
			warehouse.Register(tc.kind, tc.f)
		})
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	f := func(ctx context.Context, cfg warehouse.Config) (warehouse.Pool, error) { return nil, nil }
	warehouse.Register("test-dup", f)

	defer func() {
		if recover() == nil {
			t.Fatalf("second Register did not panic")
		}
	}()
	warehouse.Register("test-dup", f)
}

func TestNew_UnknownAndEmptyKind(t *testing.T) {
	if _, err := warehouse.New(context.Background(), warehouse.Config{}); err == nil {
		t.Fatalf("New(empty kind) err=nil, want error")
	}
	if _, err := warehouse.New(context.Background(), warehouse.Config{Kind: "nope"}); err == nil {
		t.Fatalf("New(nope) err=nil, want error")
	}
}

func TestNew_FactoryErrorIsConnectivity(t *testing.T) {
	boom := errors.New("dial tcp: refused")
	warehouse.Register("test-down", func(ctx context.Context, cfg warehouse.Config) (warehouse.Pool, error) {
		return nil, boom
	})

	_, err := warehouse.New(context.Background(), warehouse.Config{Kind: "test-down"})
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v, want wrapping %v", err, boom)
	}
	if !warehouse.IsConnectivity(err) {
		t.Fatalf("IsConnectivity(%v)=false, want true", err)
	}
}

func TestWithSession_ReleasesOnError(t *testing.T) {
	p := &warehousetest.Pool{}
	want := errors.New("statement failed")

	err := warehouse.WithSession(context.Background(), p, func(s warehouse.Session) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("err=%v, want %v", err, want)
	}
	if p.Acquired() != 1 || p.Released() != 1 {
		t.Fatalf("acquired=%d released=%d, want 1/1", p.Acquired(), p.Released())
	}
}

func TestWithSession_AcquireFailureIsConnectivity(t *testing.T) {
	p := &warehousetest.Pool{AcquireErr: errors.New("pool closed")}

	called := false
	err := warehouse.WithSession(context.Background(), p, func(s warehouse.Session) error {
		called = true
		return nil
	})
	if called {
		t.Fatalf("fn called after failed acquire")
	}
	if !warehouse.IsConnectivity(err) {
		t.Fatalf("IsConnectivity(%v)=false, want true", err)
	}
}

func TestIsConnectivity(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("syntax error"), false},
		{"marked", warehouse.Connectivity(errors.New("x")), true},
		{"pg connection exception", &pgconn.PgError{Code: "08006"}, true},
		{"pg auth", &pgconn.PgError{Code: "28P01"}, true},
		{"pg admin shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"pg undefined table", &pgconn.PgError{Code: "42P01"}, false},
		{"wrapped pg syntax", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "42601"}), false},
		{"net", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := warehouse.IsConnectivity(tc.err); got != tc.want {
				t.Fatalf("IsConnectivity(%v)=%v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
