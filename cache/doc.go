// Package cache provides the keyed TTL store primitive shared by the
// ClickUp cache layers.
//
// Store is a generic map of key to {value, fetchedAt, expiresAt} with
// lazy expiration on read, oldest-first eviction under a size cap, and
// singleflight-coalesced get-or-fetch.
package cache
