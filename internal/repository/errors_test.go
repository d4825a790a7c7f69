package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connection error", &ConnectionError{Err: errors.New("connection refused")}, true},
		{"wrapped connection error", &OperationWrap{&ConnectionError{Err: errors.New("host unreachable")}}, true},
		{"not found", ErrNotFound, false},
		{"duplicate email", ErrDuplicateEmail, false},
		{"arbitrary", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

// OperationWrap mimics an error wrapper around a store failure.
type OperationWrap struct{ inner error }

func (w *OperationWrap) Error() string { return "wrapped: " + w.inner.Error() }
func (w *OperationWrap) Unwrap() error { return w.inner }

func TestMapPgError(t *testing.T) {
	t.Run("no rows becomes not found", func(t *testing.T) {
		assert.ErrorIs(t, mapPgError(pgx.ErrNoRows), ErrNotFound)
	})

	t.Run("connection class becomes retryable", func(t *testing.T) {
		for _, code := range []string{
			pgerrcode.ConnectionException,
			pgerrcode.ConnectionDoesNotExist,
			pgerrcode.ConnectionFailure,
			pgerrcode.CannotConnectNow,
		} {
			err := mapPgError(&pgconn.PgError{Code: code})
			assert.True(t, IsRetryable(err), "code %s should be retryable", code)
		}
	})

	t.Run("unique violation becomes duplicate email", func(t *testing.T) {
		err := mapPgError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
		assert.ErrorIs(t, err, ErrDuplicateEmail)
		assert.False(t, IsRetryable(err))
	})

	t.Run("constraint violation stays fatal", func(t *testing.T) {
		err := mapPgError(&pgconn.PgError{Code: pgerrcode.NotNullViolation})
		assert.False(t, IsRetryable(err))
	})

	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, mapPgError(nil))
	})
}
