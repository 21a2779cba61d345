package bulk

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jonwraymond/clickops/observe"
)

// Outcome is the per-item result of a bulk run. Outcomes are indexed by
// input position regardless of completion order.
type Outcome struct {
	Index   int    `json:"index"`
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Totals aggregates a run.
type Totals struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Total   int `json:"total"`
}

// Result is the aggregate outcome of a bulk run.
type Result struct {
	Outcomes []Outcome `json:"outcomes"`
	Totals   Totals    `json:"totals"`
}

// Run executes op for every item with bounded concurrency and per-item
// failure isolation: one item's error never affects another's execution.
// The returned outcomes preserve input order by index.
//
// Run only returns an error when HaltOnError is set and an item failed
// (ErrBatchAborted); the partial result is still returned alongside it.
func Run[T any](ctx context.Context, items []T, op func(ctx context.Context, item T) (any, error), opts Options) (Result, error) {
	opts = opts.withDefaults()

	result := Result{
		Outcomes: make([]Outcome, len(items)),
		Totals:   Totals{Total: len(items)},
	}
	if len(items) == 0 {
		return result, nil
	}

	start := time.Now()
	concurrency := resolveConcurrency(opts.Concurrency, len(items))
	sem := semaphore.NewWeighted(int64(concurrency))

	var (
		wg        sync.WaitGroup
		halted    atomic.Bool
		mu        sync.Mutex // guards totals and progress emission
		completed int
	)

	recordOutcome := func(out Outcome) {
		result.Outcomes[out.Index] = out

		mu.Lock()
		completed++
		if out.Success {
			result.Totals.Success++
		} else {
			result.Totals.Failure++
		}
		progress := Progress{
			Completed: completed,
			Success:   result.Totals.Success,
			Failure:   result.Totals.Failure,
			Total:     result.Totals.Total,
		}
		mu.Unlock()

		opts.Metrics.RecordItem(ctx, opts.Operation, !out.Success)
		if opts.OnProgress != nil {
			opts.OnProgress(progress)
		}
	}

	for i := range items {
		if opts.HaltOnError && halted.Load() {
			recordOutcome(Outcome{
				Index: i,
				Error: &Error{Message: "skipped: batch halted after earlier failure"},
			})
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			recordOutcome(Outcome{Index: i, Error: FormatError(err)})
			continue
		}

		wg.Add(1)
		go func(index int, item T) {
			defer wg.Done()
			defer sem.Release(1)

			// Re-check after acquiring: a failure may have landed while
			// this item waited for a worker slot.
			if opts.HaltOnError && halted.Load() {
				recordOutcome(Outcome{
					Index: index,
					Error: &Error{Message: "skipped: batch halted after earlier failure"},
				})
				return
			}

			value, err := runItem(ctx, item, op, opts)
			if err != nil {
				if opts.HaltOnError {
					halted.Store(true)
				}
				opts.Logger.Debug(ctx, "bulk item failed",
					observe.F("operation", opts.Operation),
					observe.F("index", index),
					observe.F("error", err.Error()),
				)
				recordOutcome(Outcome{Index: index, Error: FormatError(err)})
				return
			}
			recordOutcome(Outcome{Index: index, Success: true, Result: value})
		}(i, items[i])
	}

	wg.Wait()

	opts.Metrics.RecordRun(ctx, opts.Operation, time.Since(start))
	opts.Logger.Info(ctx, "bulk run completed",
		observe.F("operation", opts.Operation),
		observe.F("success", result.Totals.Success),
		observe.F("failure", result.Totals.Failure),
		observe.F("total", result.Totals.Total),
	)

	if opts.HaltOnError && result.Totals.Failure > 0 {
		return result, ErrBatchAborted
	}
	return result, nil
}

// runItem executes one item with the configured retry policy.
func runItem[T any](ctx context.Context, item T, op func(ctx context.Context, item T) (any, error), opts Options) (any, error) {
	var lastErr error

	for attempt := 0; attempt <= opts.RetryCount; attempt++ {
		if attempt > 0 {
			delay := retryDelay(opts, attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		value, err := op(ctx, item)
		if err == nil {
			return value, nil
		}
		lastErr = err
		if !retryableError(err) {
			break
		}
	}

	return nil, lastErr
}

// retryDelay computes the wait before the given retry attempt (1-based).
func retryDelay(opts Options, attempt int) time.Duration {
	delay := opts.RetryDelay
	if opts.ExponentialBackoff {
		for i := 1; i < attempt; i++ {
			delay *= 2
		}
	}
	if quarter := int64(delay / 4); quarter > 0 {
		// Add up to 25% jitter
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay += time.Duration(rand.Int63n(quarter))
	}
	return delay
}
