package config

import (
	"os"
	"strconv"
	"time"
)

// Hard limits mirroring the upstream API's tolerance for parallel writes.
const (
	MaxBulkConcurrency = 10
	MaxBulkRetryCount  = 6
)

// Settings holds every tunable of the caching and bulk layers.
type Settings struct {
	// TTLs. All default to the 60s-5m range; listings and searches turn
	// over faster than the hierarchy.
	HierarchyTTL time.Duration // Default: 5m
	ListTTL      time.Duration // Default: 60s
	SearchTTL    time.Duration // Default: 60s
	TaskTTL      time.Duration // Default: 5m
	DocTTL       time.Duration // Default: 5m
	DocPagesTTL  time.Duration // Default: 5m
	TagTTL       time.Duration // Default: 5m

	// Size caps.
	MaxListEntries   int // Default: 100
	MaxSearchEntries int // Default: 50
	MaxTaskRecords   int // Default: 1000
	MaxDocEntries    int // Default: 100
	MaxDocPages      int // Default: 200

	// Bulk execution.
	BulkConcurrency int           // Default: 4, clamped to [1, 10]
	BulkRetryCount  int           // Default: 3, clamped to [0, 6]
	BulkRetryDelay  time.Duration // Default: 1s
}

// Default returns the default settings.
func Default() Settings {
	return Settings{
		HierarchyTTL:     5 * time.Minute,
		ListTTL:          60 * time.Second,
		SearchTTL:        60 * time.Second,
		TaskTTL:          5 * time.Minute,
		DocTTL:           5 * time.Minute,
		DocPagesTTL:      5 * time.Minute,
		TagTTL:           5 * time.Minute,
		MaxListEntries:   100,
		MaxSearchEntries: 50,
		MaxTaskRecords:   1000,
		MaxDocEntries:    100,
		MaxDocPages:      200,
		BulkConcurrency:  4,
		BulkRetryCount:   3,
		BulkRetryDelay:   time.Second,
	}
}

// FromEnv reads settings from the process environment.
func FromEnv() Settings {
	return FromEnviron(os.Getenv)
}

// FromEnviron reads settings through the given lookup. Unset or malformed
// values fall back to defaults; out-of-range values are clamped rather
// than rejected.
func FromEnviron(getenv func(string) string) Settings {
	s := Default()

	s.HierarchyTTL = clampedDuration(getenv("CLICKOPS_HIERARCHY_TTL"), s.HierarchyTTL, 0)
	s.ListTTL = clampedDuration(getenv("CLICKOPS_LIST_TTL"), s.ListTTL, 0)
	s.SearchTTL = clampedDuration(getenv("CLICKOPS_SEARCH_TTL"), s.SearchTTL, 0)
	s.TaskTTL = clampedDuration(getenv("CLICKOPS_TASK_TTL"), s.TaskTTL, 0)
	s.DocTTL = clampedDuration(getenv("CLICKOPS_DOC_TTL"), s.DocTTL, 0)
	s.DocPagesTTL = clampedDuration(getenv("CLICKOPS_DOC_PAGES_TTL"), s.DocPagesTTL, 0)
	s.TagTTL = clampedDuration(getenv("CLICKOPS_TAG_TTL"), s.TagTTL, 0)

	s.MaxListEntries = clampedInt(getenv("CLICKOPS_MAX_LIST_ENTRIES"), s.MaxListEntries, 1, 0)
	s.MaxSearchEntries = clampedInt(getenv("CLICKOPS_MAX_SEARCH_ENTRIES"), s.MaxSearchEntries, 1, 0)
	s.MaxTaskRecords = clampedInt(getenv("CLICKOPS_MAX_TASK_RECORDS"), s.MaxTaskRecords, 1, 0)
	s.MaxDocEntries = clampedInt(getenv("CLICKOPS_MAX_DOC_ENTRIES"), s.MaxDocEntries, 1, 0)
	s.MaxDocPages = clampedInt(getenv("CLICKOPS_MAX_DOC_PAGES"), s.MaxDocPages, 1, 0)

	s.BulkConcurrency = clampedInt(getenv("CLICKOPS_BULK_CONCURRENCY"), s.BulkConcurrency, 1, MaxBulkConcurrency)
	s.BulkRetryCount = clampedInt(getenv("CLICKOPS_BULK_RETRY_COUNT"), s.BulkRetryCount, 0, MaxBulkRetryCount)
	s.BulkRetryDelay = clampedDuration(getenv("CLICKOPS_BULK_RETRY_DELAY"), s.BulkRetryDelay, 0)

	return s
}

// clampedInt parses raw as an int, falling back to def and clamping to
// [min, max]. max <= 0 means no upper bound.
func clampedInt(raw string, def, min, max int) int {
	parsed := def
	if raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			parsed = v
		}
	}
	if parsed < min {
		parsed = min
	}
	if max > 0 && parsed > max {
		parsed = max
	}
	return parsed
}

// clampedDuration parses raw as a time.Duration, falling back to def and
// enforcing the minimum.
func clampedDuration(raw string, def, min time.Duration) time.Duration {
	parsed := def
	if raw != "" {
		if v, err := time.ParseDuration(raw); err == nil {
			parsed = v
		}
	}
	if parsed < min {
		parsed = min
	}
	return parsed
}
