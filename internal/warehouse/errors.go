package warehouse

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrConnectivity matches every error classified as a connectivity failure.
var ErrConnectivity = errors.New("warehouse unreachable")

type connectivityError struct {
	err error
}

func (e *connectivityError) Error() string        { return e.err.Error() }
func (e *connectivityError) Unwrap() error        { return e.err }
func (e *connectivityError) Is(target error) bool { return target == ErrConnectivity }

// Connectivity marks err as a connectivity failure. nil stays nil.
func Connectivity(err error) error {
	if err == nil || errors.Is(err, ErrConnectivity) {
		return err
	}
	return &connectivityError{err: err}
}

// IsConnectivity reports whether err means the warehouse could not be reached
// or refused the session, as opposed to rejecting a statement.
//
// Recognized:
//   - errors marked with Connectivity
//   - pgconn connect errors and SQLSTATE classes 08 (connection exception),
//     28 (invalid authorization) and 57P (operator intervention)
//   - net.Error, driver.ErrBadConn, sql.ErrConnDone
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnectivity) {
		return true
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := pgErr.Code
		return strings.HasPrefix(code, "08") ||
			strings.HasPrefix(code, "28") ||
			strings.HasPrefix(code, "57P")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone)
}
