package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
)

// fakeStore scripts WithTransaction outcomes for retry tests. Only the
// transaction method matters here; the lookup methods are never called.
type fakeStore struct {
	errs     []error // error per attempt; nil means success
	attempts int
}

func (f *fakeStore) WithTransaction(ctx context.Context, iso IsolationLevel, fn func(tx Tx) error) error {
	i := f.attempts
	f.attempts++
	if i < len(f.errs) {
		return f.errs[i]
	}
	return nil
}

func (f *fakeStore) GetLocation(ctx context.Context, id string) (*models.Location, error) {
	panic("not used")
}

func (f *fakeStore) ListCollectionPrepIDs(ctx context.Context, region models.Region, locationID, carrier string, day time.Time) ([]string, error) {
	panic("not used")
}

func (f *fakeStore) GetStockLevels(ctx context.Context, region models.Region, variantIDs []string) ([]models.StockLevel, error) {
	panic("not used")
}

func (f *fakeStore) AddStock(ctx context.Context, region models.Region, variantID string, quantity int) error {
	panic("not used")
}

func fastRetry() RetryOptions {
	return RetryOptions{MaxAttempts: 3, BaseDelay: time.Millisecond}
}

func serializationFailure() error {
	return &pgconn.PgError{Code: PgErrSerializationFailure, Message: "could not serialize access"}
}

func TestRunWithRetry_SucceedsFirstAttempt(t *testing.T) {
	s := &fakeStore{}
	err := RunWithRetry(context.Background(), s, func(tx Tx) error { return nil }, fastRetry())
	require.NoError(t, err)
	assert.Equal(t, 1, s.attempts)
}

func TestRunWithRetry_RetriesSerializationFailure(t *testing.T) {
	s := &fakeStore{errs: []error{serializationFailure(), serializationFailure()}}
	err := RunWithRetry(context.Background(), s, func(tx Tx) error { return nil }, fastRetry())
	require.NoError(t, err)
	assert.Equal(t, 3, s.attempts)
}

func TestRunWithRetry_ExhaustsBudget(t *testing.T) {
	s := &fakeStore{errs: []error{serializationFailure(), serializationFailure(), serializationFailure(), serializationFailure()}}
	err := RunWithRetry(context.Background(), s, func(tx Tx) error { return nil }, fastRetry())

	require.Error(t, err)
	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, PgErrSerializationFailure, pgErr.Code)
	assert.Equal(t, 3, s.attempts)
}

func TestRunWithRetry_TerminalErrorStopsImmediately(t *testing.T) {
	lockTimeout := &pgconn.PgError{Code: PgErrLockNotAvailable, Message: "lock timeout"}
	s := &fakeStore{errs: []error{lockTimeout}}

	err := RunWithRetry(context.Background(), s, func(tx Tx) error { return nil }, fastRetry())

	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, PgErrLockNotAvailable, pgErr.Code)
	assert.Equal(t, 1, s.attempts)
}

func TestRunWithRetry_ContextCancellationIsNotRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &fakeStore{errs: []error{ctx.Err()}}

	err := RunWithRetry(ctx, s, func(tx Tx) error { return nil }, RetryOptions{MaxAttempts: 3, BaseDelay: time.Millisecond})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, s.attempts)
}

func TestRunWithRetry_DefaultsApplied(t *testing.T) {
	s := &fakeStore{errs: []error{serializationFailure(), serializationFailure(), serializationFailure()}}
	start := time.Now()

	// Override only the delay so the test stays fast; the attempt budget
	// must fall back to 3.
	err := RunWithRetry(context.Background(), s, func(tx Tx) error { return nil }, RetryOptions{BaseDelay: time.Millisecond})

	require.Error(t, err)
	assert.Equal(t, 3, s.attempts)
	// Backoff is 2^1 + 2^2 milliseconds between the three attempts.
	assert.GreaterOrEqual(t, time.Since(start), 6*time.Millisecond)
}
