package bulk

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// FanOut maps fn over items with bounded concurrency and returns the
// results indexed by input position.
//
// Unlike Run, there is no per-item failure isolation: the first error
// cancels the remaining work and propagates unmodified to the caller.
// Hierarchy traversal uses this, where a failed read fails the whole
// operation anyway.
func FanOut[T, R any](ctx context.Context, items []T, concurrency int, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency(concurrency, len(items)))

	for i := range items {
		i := i
		g.Go(func() error {
			// Skip work queued behind a failure.
			if err := ctx.Err(); err != nil {
				return err
			}
			value, err := fn(ctx, items[i])
			if err != nil {
				return err
			}
			results[i] = value
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
