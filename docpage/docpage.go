package docpage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jonwraymond/clickops/observe"
)

const component = "docpage"

// Doc is a raw upstream document object.
type Doc map[string]any

// Page is a raw upstream page object.
type Page map[string]any

// Config configures a Cache. Zero values take the defaults.
type Config struct {
	// TTL bounds search entries.
	// Default: 5 minutes
	TTL time.Duration

	// PagesTTL bounds standalone page collections, independent of TTL.
	// Default: 5 minutes
	PagesTTL time.Duration

	// MaxEntries caps the search-entry store.
	// Default: 100
	MaxEntries int

	// MaxDocPages caps the standalone page-collection store.
	// Default: 200
	MaxDocPages int

	// Now overrides the time source for tests.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.TTL == 0 {
		c.TTL = 5 * time.Minute
	}
	if c.PagesTTL == 0 {
		c.PagesTTL = 5 * time.Minute
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = 100
	}
	if c.MaxDocPages <= 0 {
		c.MaxDocPages = 200
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Entry is one cached document search result.
type Entry struct {
	Docs []Doc `json:"docs"`
	// ExpandedPages maps a document ID to its pages, present only when
	// the search was stored with page expansion.
	ExpandedPages map[string][]Page `json:"expandedPages,omitempty"`
	// DocIDs lists the IDs derived from Docs, in input order.
	DocIDs []string `json:"docIds"`
	// PageIndex maps each document ID to its page IDs.
	PageIndex map[string][]string `json:"pageIndex,omitempty"`
}

// Key builds the cache key for a document search.
func Key(query string, limit int, expandPages bool) string {
	expand := 0
	if expandPages {
		expand = 1
	}
	return fmt.Sprintf("docs:%s:limit:%d:expand:%d", query, limit, expand)
}

type entry struct {
	value     Entry
	fetchedAt time.Time
	expiresAt time.Time
}

type pagesEntry struct {
	pages     []Page
	pageIDs   []string
	fetchedAt time.Time
	expiresAt time.Time
}

// keySet is a set of entry keys, used by the reverse indexes.
type keySet map[string]struct{}

// Cache stores document searches and page collections.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: reads report misses as ok=false, never as errors.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	docIndex  map[string]keySet
	pageIndex map[string]keySet
	docPages  map[string]*pagesEntry

	config  Config
	now     func() time.Time
	logger  observe.Logger
	metrics *observe.CacheMetrics
}

// New creates a cache. logger and metrics may be nil.
func New(config Config, logger observe.Logger, metrics *observe.CacheMetrics) *Cache {
	config = config.withDefaults()
	return &Cache{
		entries:   make(map[string]*entry),
		docIndex:  make(map[string]keySet),
		pageIndex: make(map[string]keySet),
		docPages:  make(map[string]*pagesEntry),
		config:    config,
		now:       config.Now,
		logger:    observe.OrNop(logger).WithComponent(component),
		metrics:   metrics,
	}
}

// Get returns a cached search entry. Expired or force-refreshed entries
// are deleted, including their reverse-index registrations, not just
// skipped.
func (c *Cache) Get(ctx context.Context, key string, forceRefresh bool) (Entry, bool) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.metrics.Miss(ctx, component)
		return Entry{}, false
	}
	if forceRefresh || now.After(e.expiresAt) {
		c.deleteEntryLocked(key)
		c.metrics.Miss(ctx, component)
		return Entry{}, false
	}
	c.metrics.Hit(ctx, component)
	return e.value, true
}

// Store caches a search result. Document IDs come from each doc's
// id, doc_id or docId field, page IDs from id, page_id or pageId;
// the entry is registered in both reverse indexes and each document's
// page collection is upserted into the standalone store.
func (c *Cache) Store(ctx context.Context, key string, docs []Doc, expandedPages map[string][]Page) Entry {
	now := c.now()

	docIDs := make([]string, 0, len(docs))
	for _, d := range docs {
		if id := objectID(d, "doc_id", "docId"); id != "" {
			docIDs = append(docIDs, id)
		}
	}

	pageIndex := make(map[string][]string, len(expandedPages))
	for docID, pages := range expandedPages {
		ids := make([]string, 0, len(pages))
		for _, p := range pages {
			if id := objectID(p, "page_id", "pageId"); id != "" {
				ids = append(ids, id)
			}
		}
		pageIndex[docID] = ids
	}

	value := Entry{
		Docs:          docs,
		ExpandedPages: expandedPages,
		DocIDs:        docIDs,
		PageIndex:     pageIndex,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Replacing an entry re-registers it from scratch.
	if _, ok := c.entries[key]; ok {
		c.deleteEntryLocked(key)
	}

	c.entries[key] = &entry{value: value, fetchedAt: now, expiresAt: now.Add(c.config.TTL)}
	for _, docID := range docIDs {
		c.register(c.docIndex, docID, key)
	}
	for docID, pageIDs := range pageIndex {
		for _, pageID := range pageIDs {
			c.register(c.pageIndex, pageKey(docID, pageID), key)
		}
	}

	for docID, pages := range expandedPages {
		c.storeDocPagesLocked(now, docID, pages)
	}

	c.evictEntriesLocked(ctx)
	c.evictDocPagesLocked(ctx)
	return value
}

// StoreDocPages upserts a document's page collection directly.
func (c *Cache) StoreDocPages(ctx context.Context, docID string, pages []Page) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.storeDocPagesLocked(now, docID, pages)
	c.evictDocPagesLocked(ctx)
}

// GetDocPages returns a document's standalone page collection,
// independent of any search entry.
func (c *Cache) GetDocPages(ctx context.Context, docID string, forceRefresh bool) ([]Page, bool) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.docPages[docID]
	if !ok {
		c.metrics.Miss(ctx, component)
		return nil, false
	}
	if forceRefresh || now.After(e.expiresAt) {
		delete(c.docPages, docID)
		c.metrics.Miss(ctx, component)
		return nil, false
	}
	c.metrics.Hit(ctx, component)
	return e.pages, true
}

// InvalidateDoc drops every search entry referencing the document and
// its standalone page collection.
func (c *Cache) InvalidateDoc(ctx context.Context, docID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, key := range sortedKeys(c.docIndex[docID]) {
		c.deleteEntryLocked(key)
		n++
	}
	if _, ok := c.docPages[docID]; ok {
		delete(c.docPages, docID)
		n++
	}
	c.logger.Debug(ctx, "doc invalidated",
		observe.F("docId", docID),
		observe.F("entries", n),
	)
	c.metrics.Invalidation(ctx, component, n)
}

// InvalidateDocPage drops every search entry referencing the specific
// page, plus the document's page collection. The collection is not
// page-indexed, so the whole collection goes.
func (c *Cache) InvalidateDocPage(ctx context.Context, docID, pageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, key := range sortedKeys(c.pageIndex[pageKey(docID, pageID)]) {
		c.deleteEntryLocked(key)
		n++
	}
	if _, ok := c.docPages[docID]; ok {
		delete(c.docPages, docID)
		n++
	}
	c.metrics.Invalidation(ctx, component, n)
}

// InvalidateAll drops everything.
func (c *Cache) InvalidateAll(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries) + len(c.docPages)
	c.entries = make(map[string]*entry)
	c.docIndex = make(map[string]keySet)
	c.pageIndex = make(map[string]keySet)
	c.docPages = make(map[string]*pagesEntry)
	c.metrics.Invalidation(ctx, component, n)
}

func (c *Cache) storeDocPagesLocked(now time.Time, docID string, pages []Page) {
	pageIDs := make([]string, 0, len(pages))
	for _, p := range pages {
		if id := objectID(p, "page_id", "pageId"); id != "" {
			pageIDs = append(pageIDs, id)
		}
	}
	c.docPages[docID] = &pagesEntry{
		pages:     pages,
		pageIDs:   pageIDs,
		fetchedAt: now,
		expiresAt: now.Add(c.config.PagesTTL),
	}
}

// deleteEntryLocked removes a search entry and unregisters it from both
// reverse indexes, pruning sets that become empty.
func (c *Cache) deleteEntryLocked(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	for _, docID := range e.value.DocIDs {
		c.unregister(c.docIndex, docID, key)
	}
	for docID, pageIDs := range e.value.PageIndex {
		for _, pageID := range pageIDs {
			c.unregister(c.pageIndex, pageKey(docID, pageID), key)
		}
	}
}

func (c *Cache) register(index map[string]keySet, id, key string) {
	set, ok := index[id]
	if !ok {
		set = make(keySet)
		index[id] = set
	}
	set[key] = struct{}{}
}

func (c *Cache) unregister(index map[string]keySet, id, key string) {
	set, ok := index[id]
	if !ok {
		return
	}
	delete(set, key)
	if len(set) == 0 {
		delete(index, id)
	}
}

func (c *Cache) evictEntriesLocked(ctx context.Context) {
	if len(c.entries) <= c.config.MaxEntries {
		return
	}
	type aged struct {
		key       string
		fetchedAt time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for key, e := range c.entries {
		all = append(all, aged{key, e.fetchedAt})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].fetchedAt.Equal(all[j].fetchedAt) {
			return all[i].key < all[j].key
		}
		return all[i].fetchedAt.Before(all[j].fetchedAt)
	})
	for _, victim := range all[:len(all)-c.config.MaxEntries] {
		c.deleteEntryLocked(victim.key)
		c.metrics.Eviction(ctx, component, 1)
	}
}

func (c *Cache) evictDocPagesLocked(ctx context.Context) {
	if len(c.docPages) <= c.config.MaxDocPages {
		return
	}
	type aged struct {
		docID     string
		fetchedAt time.Time
	}
	all := make([]aged, 0, len(c.docPages))
	for docID, e := range c.docPages {
		all = append(all, aged{docID, e.fetchedAt})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].fetchedAt.Equal(all[j].fetchedAt) {
			return all[i].docID < all[j].docID
		}
		return all[i].fetchedAt.Before(all[j].fetchedAt)
	})
	for _, victim := range all[:len(all)-c.config.MaxDocPages] {
		delete(c.docPages, victim.docID)
		c.metrics.Eviction(ctx, component, 1)
	}
}

func pageKey(docID, pageID string) string {
	return docID + "::" + pageID
}

// sortedKeys snapshots a key set in stable order so deletion while
// iterating stays well defined.
func sortedKeys(set keySet) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// objectID returns the object's identifier, trying "id" first and then
// the given aliases; the first non-empty string or number wins.
func objectID(m map[string]any, aliases ...string) string {
	names := append([]string{"id"}, aliases...)
	for _, name := range names {
		switch v := m[name].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		}
	}
	return ""
}
