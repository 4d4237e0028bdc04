package store

import (
	"context"
	"errors"
	"time"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/logging"
)

// DefaultMaxAttempts is the transaction attempt budget.
const DefaultMaxAttempts = 3

// RetryOptions tunes RunWithRetry. The zero value gets the defaults:
// 3 attempts, 1s base delay.
type RetryOptions struct {
	MaxAttempts int
	// BaseDelay scales the backoff: attempt n sleeps 2^n * BaseDelay.
	// Tests shrink this to keep runs fast.
	BaseDelay time.Duration
}

// RunWithRetry executes fn inside a serializable transaction, retrying
// transient failures (see IsRetryable) with exponential backoff. Terminal
// failures and exhausted budgets propagate the last error unchanged.
//
// This is the only place transaction boundaries and backoff policy are
// defined; the deletion engine and seeder are pure consumers.
func RunWithRetry(ctx context.Context, s Store, fn func(tx Tx) error, opts RetryOptions) error {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		err := s.WithTransaction(ctx, IsolationSerializable, fn)
		if err == nil {
			return nil
		}
		if isContextDone(err) {
			return err
		}
		if !IsRetryable(err) || attempt == opts.MaxAttempts {
			return err
		}

		delay := opts.BaseDelay * time.Duration(1<<attempt)
		logging.LogKV("warn", "transient store error, retrying transaction", map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": opts.MaxAttempts,
			"delay_ms":     delay.Milliseconds(),
			"error":        err.Error(),
		})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	// The loop always returns from inside; reaching here is a defect.
	return errors.New("store: retry loop exited without a result")
}
