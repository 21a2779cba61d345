// Package tags caches each space's tag vocabulary so tag-name lookups
// during task creation and update do not re-fetch the full collection.
package tags
