package store

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned by lookups that expect exactly one row.
var ErrNotFound = errors.New("not found")

// PostgreSQL SQLSTATE codes this package classifies on.
const (
	// Class 40 — Transaction Rollback
	PgErrSerializationFailure = "40001" // serialization_failure
	PgErrDeadlockDetected     = "40P01" // deadlock_detected

	// Class 23 — Integrity Constraint Violation
	PgErrUniqueViolation     = "23505" // unique_violation
	PgErrForeignKeyViolation = "23503" // foreign_key_violation

	// Class 55 / 57 — lock and statement timeouts are terminal: the
	// transaction budget was exceeded, retrying would exceed it again.
	PgErrLockNotAvailable = "55P03" // lock_not_available
	PgErrQueryCanceled    = "57014" // query_canceled (statement_timeout)
)

// IsRetryable classifies an error as transient (worth retrying in a fresh
// transaction) or terminal. Retryable: serialization conflicts, deadlocks,
// connection failures (SQLSTATE class 08), dial timeouts, and refused
// connections. Everything else — including lock and statement timeouts —
// is terminal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case PgErrSerializationFailure, PgErrDeadlockDetected:
			return true
		}
		// Class 08 — Connection Exception
		return strings.HasPrefix(pgErr.Code, "08")
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation. The batch identifier generator's callers use this to detect
// identifier collisions under concurrent creation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == PgErrUniqueViolation
}

// isContextDone lets the retry loop stop immediately on caller cancellation
// instead of misclassifying it as a transient failure.
func isContextDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
