// Package hierarchy caches workspace, space, folder and list listings
// with scope-aware keys and parent context, so repeated tree lookups do
// not re-walk the upstream API.
//
// The directory optionally persists its state through a session.Store
// keyed by team ID. Persistence is best-effort: it never blocks reads
// and its failures never surface to callers.
package hierarchy
