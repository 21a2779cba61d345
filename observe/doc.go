// Package observe provides structured logging and OpenTelemetry metrics
// for the caching and bulk-execution components.
//
// It defines a minimal Logger interface with a JSON implementation and
// counter bundles for cache and bulk instrumentation. Exporter and
// provider setup belongs to the embedding application; this package only
// consumes a metric.Meter.
package observe
