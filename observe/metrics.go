package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CacheMetrics records cache access metrics.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: recording must not panic; a nil *CacheMetrics is a no-op.
type CacheMetrics struct {
	hits          metric.Int64Counter
	misses        metric.Int64Counter
	evictions     metric.Int64Counter
	invalidations metric.Int64Counter
}

// NewCacheMetrics creates cache counters on the given meter.
func NewCacheMetrics(meter metric.Meter) (*CacheMetrics, error) {
	hits, err := meter.Int64Counter(
		"cache.hits",
		metric.WithDescription("Cache reads served from a live entry"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(
		"cache.misses",
		metric.WithDescription("Cache reads that found no live entry"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter(
		"cache.evictions",
		metric.WithDescription("Entries removed by size-pressure eviction"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	invalidations, err := meter.Int64Counter(
		"cache.invalidations",
		metric.WithDescription("Entries removed by explicit invalidation"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &CacheMetrics{
		hits:          hits,
		misses:        misses,
		evictions:     evictions,
		invalidations: invalidations,
	}, nil
}

func (m *CacheMetrics) attrs(component string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("cache.component", component))
}

// Hit records a cache hit for the named component.
func (m *CacheMetrics) Hit(ctx context.Context, component string) {
	if m == nil {
		return
	}
	m.hits.Add(ctx, 1, m.attrs(component))
}

// Miss records a cache miss for the named component.
func (m *CacheMetrics) Miss(ctx context.Context, component string) {
	if m == nil {
		return
	}
	m.misses.Add(ctx, 1, m.attrs(component))
}

// Eviction records n evicted entries for the named component.
func (m *CacheMetrics) Eviction(ctx context.Context, component string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.evictions.Add(ctx, int64(n), m.attrs(component))
}

// Invalidation records n explicitly invalidated entries.
func (m *CacheMetrics) Invalidation(ctx context.Context, component string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.invalidations.Add(ctx, int64(n), m.attrs(component))
}

// BulkMetrics records bulk-run outcomes.
//
// A nil *BulkMetrics is a no-op.
type BulkMetrics struct {
	items    metric.Int64Counter
	duration metric.Float64Histogram
}

// NewBulkMetrics creates bulk counters on the given meter.
func NewBulkMetrics(meter metric.Meter) (*BulkMetrics, error) {
	items, err := meter.Int64Counter(
		"bulk.items",
		metric.WithDescription("Bulk operation items processed"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"bulk.run.duration_ms",
		metric.WithDescription("Bulk run duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &BulkMetrics{items: items, duration: duration}, nil
}

// RecordItem records one completed item for the named operation.
func (m *BulkMetrics) RecordItem(ctx context.Context, operation string, failed bool) {
	if m == nil {
		return
	}
	m.items.Add(ctx, 1, metric.WithAttributes(
		attribute.String("bulk.operation", operation),
		attribute.Bool("bulk.failed", failed),
	))
}

// RecordRun records the wall-clock duration of a completed run.
func (m *BulkMetrics) RecordRun(ctx context.Context, operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Record(ctx, float64(d.Milliseconds()), metric.WithAttributes(
		attribute.String("bulk.operation", operation),
	))
}
