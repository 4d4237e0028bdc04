package store

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"serialization failure", &pgconn.PgError{Code: PgErrSerializationFailure}, true},
		{"deadlock detected", &pgconn.PgError{Code: PgErrDeadlockDetected}, true},
		{"connection exception class 08", &pgconn.PgError{Code: "08006"}, true},
		{"lock timeout is terminal", &pgconn.PgError{Code: PgErrLockNotAvailable}, false},
		{"statement timeout is terminal", &pgconn.PgError{Code: PgErrQueryCanceled}, false},
		{"unique violation is terminal", &pgconn.PgError{Code: PgErrUniqueViolation}, false},
		{"foreign key violation is terminal", &pgconn.PgError{Code: PgErrForeignKeyViolation}, false},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"connection reset", syscall.ECONNRESET, true},
		{"net timeout", timeoutErr{}, true},
		{"wrapped pg error", fmt.Errorf("delete preps: %w", &pgconn.PgError{Code: PgErrSerializationFailure}), true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRetryable(tc.err))
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: PgErrUniqueViolation}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: PgErrUniqueViolation})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: PgErrForeignKeyViolation}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}
