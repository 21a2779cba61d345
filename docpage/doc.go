// Package docpage caches document search results and per-document page
// collections.
//
// Search entries carry reverse indexes from the documents and pages
// they mention back to the entry keys, so invalidating one document or
// page deletes exactly the entries that referenced it. Every delete
// path, explicit or eviction or forced refresh, unregisters the entry
// from those indexes and prunes empty sets.
package docpage
