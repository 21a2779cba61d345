// Package catalog caches task listings, search results and individual
// task records behind normalized keys.
//
// Four stores cooperate under one lock: list pages, search entries,
// signature-keyed context indexes, and a flat task-record lookup fed by
// every store operation. Invalidating a task cascades across all four,
// and dropping a search entry always drops the context entry its
// signature points at.
package catalog
