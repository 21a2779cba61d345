package bulk

import (
	"time"

	"github.com/jonwraymond/clickops/config"
	"github.com/jonwraymond/clickops/observe"
)

// Progress is handed to the progress callback after every completed item.
type Progress struct {
	Completed int `json:"completed"`
	Success   int `json:"success"`
	Failure   int `json:"failure"`
	Total     int `json:"total"`
}

// Options controls a bulk run.
type Options struct {
	// Operation names the run in logs and metrics, e.g. "move_tasks".
	Operation string

	// Concurrency is the number of parallel workers. 0 resolves from the
	// CLICKOPS_BULK_CONCURRENCY environment, else the default of 4. The
	// resolved value is clamped to [1, len(items)].
	Concurrency int

	// RetryCount is the number of retries per item after the initial
	// attempt.
	// Default: 0 (no retries)
	RetryCount int

	// RetryDelay is the delay before the first retry.
	// Default: 1s when RetryCount > 0
	RetryDelay time.Duration

	// ExponentialBackoff doubles the delay each retry, with up to 25%
	// jitter.
	ExponentialBackoff bool

	// HaltOnError stops scheduling further items after the first failure
	// and makes Run return ErrBatchAborted. Items already in flight still
	// complete and record their outcomes.
	HaltOnError bool

	// OnProgress, when set, is called after each completed item.
	OnProgress func(Progress)

	// Logger receives per-failure and completion entries. nil disables.
	Logger observe.Logger

	// Metrics receives per-item and per-run measurements. nil disables.
	Metrics *observe.BulkMetrics
}

func (o Options) withDefaults() Options {
	if o.Operation == "" {
		o.Operation = "bulk"
	}
	if o.RetryCount > config.MaxBulkRetryCount {
		o.RetryCount = config.MaxBulkRetryCount
	}
	if o.RetryCount > 0 && o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	o.Logger = observe.OrNop(o.Logger)
	return o
}

// resolveConcurrency picks the worker count for n items: explicit
// override, else environment-derived default, clamped so no idle workers
// are spun up for a small batch.
func resolveConcurrency(override, n int) int {
	c := override
	if c <= 0 {
		c = config.FromEnv().BulkConcurrency
	}
	if c > config.MaxBulkConcurrency {
		c = config.MaxBulkConcurrency
	}
	if c > n {
		c = n
	}
	if c < 1 {
		c = 1
	}
	return c
}
