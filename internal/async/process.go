// Package async provides a bounded-concurrency batch processor for
// homogeneous I/O-bound work.
package async

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit is the concurrency ceiling used when callers pass limit <= 0.
const DefaultLimit = 5

// Process runs handler over all items with at most limit invocations in
// flight. Results are positionally ordered: results[i] is the handler
// output for items[i] regardless of completion order. The first handler
// error cancels the group context and is returned with nil results;
// already-started handlers run to completion but their output is discarded.
// Empty input returns an empty slice without starting any goroutine.
func Process[T any, R any](ctx context.Context, items []T, limit int, handler func(ctx context.Context, item T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return []R{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	results := make([]R, len(items))
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			out, err := handler(gctx, item)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
