package cache

import (
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Config configures a Store.
type Config struct {
	// TTL is how long an entry stays live. TTL <= 0 disables caching:
	// every Set becomes a no-op and every Get a miss.
	// Default: 5 minutes
	TTL time.Duration

	// MaxEntries caps the number of stored entries. When a Set pushes the
	// store past the cap, the entries with the oldest fetch time are
	// evicted. 0 means unbounded.
	MaxEntries int

	// Now overrides the time source. Tests use this to control expiry.
	// Default: time.Now
	Now func() time.Time
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		TTL:        5 * time.Minute,
		MaxEntries: 0,
	}
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

// MinFetchedAt returns the earliest of the given fetch times. Composite
// snapshots assembled from several sub-fetches take the minimum so that a
// composite never appears fresher than its oldest ingredient. The zero
// time is ignored; it is returned only when every input is zero.
func MinFetchedAt(times ...time.Time) time.Time {
	var min time.Time
	for _, t := range times {
		if t.IsZero() {
			continue
		}
		if min.IsZero() || t.Before(min) {
			min = t
		}
	}
	return min
}
