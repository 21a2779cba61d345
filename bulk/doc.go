// Package bulk runs many upstream calls under a bounded concurrency
// limit.
//
// Two patterns share the limit resolution: FanOut for read traversal,
// where the first error aborts the whole batch, and Run for bulk
// mutations, where every item completes independently and failures are
// captured as structured outcomes instead of propagating.
package bulk
