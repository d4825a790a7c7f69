package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// The repository surfaces a closed set of error kinds so that callers never
// inspect driver-specific errors. Connection-class failures are the only
// retryable kind; everything else aborts immediately.
var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when a create or update would violate
	// the email uniqueness constraint.
	ErrDuplicateEmail = errors.New("email already registered")
)

// ConnectionError marks a connection-class failure (refused, unreachable,
// timed out) that is safe to retry against the same store.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("store connection failure: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a connection-class store failure.
// Constraint violations, not-found and validation failures are fatal.
func IsRetryable(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// mapPgError converts a pgx/pgconn error into the repository error set.
// Connection exceptions (class 08) and "cannot connect now" (57P03) become
// ConnectionError; a unique violation on the email index becomes
// ErrDuplicateEmail; pgx.ErrNoRows becomes ErrNotFound.
// See https://www.postgresql.org/docs/current/errcodes-appendix.html.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.ConnectionException,
			pgerrcode.ConnectionDoesNotExist,
			pgerrcode.ConnectionFailure,
			pgerrcode.SQLClientUnableToEstablishSQLConnection,
			pgerrcode.CannotConnectNow:
			return &ConnectionError{Err: err}
		case pgerrcode.UniqueViolation:
			return ErrDuplicateEmail
		}
		return err
	}

	// pgx reports dial/reset failures as plain net errors, not PgErrors.
	if pgconn.SafeToRetry(err) {
		return &ConnectionError{Err: err}
	}
	return err
}
