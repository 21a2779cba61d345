// Package session provides the keyed-by-team snapshot store used by the
// hierarchy directory for cross-request persistence.
//
// The store is an opaque key-value service: the directory serializes its
// own state and never relies on the store for expiry semantics. A nil
// store is valid; the directory then runs purely in-memory.
package session
