package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonwraymond/clickops/observe"
)

const component = "catalog"

// Config configures a Catalog. Zero values take the defaults.
type Config struct {
	// ListTTL bounds list-page entries.
	// Default: 60s
	ListTTL time.Duration

	// SearchTTL bounds search and context entries.
	// Default: 60s
	SearchTTL time.Duration

	// TaskTTL bounds flat task records.
	// Default: 5 minutes
	TaskTTL time.Duration

	// MaxListEntries caps the list-page store.
	// Default: 100
	MaxListEntries int

	// MaxSearchEntries caps the search store.
	// Default: 50
	MaxSearchEntries int

	// MaxTaskRecords caps the flat task-record store.
	// Default: 1000
	MaxTaskRecords int

	// Now overrides the time source for tests.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.ListTTL == 0 {
		c.ListTTL = 60 * time.Second
	}
	if c.SearchTTL == 0 {
		c.SearchTTL = 60 * time.Second
	}
	if c.TaskTTL == 0 {
		c.TaskTTL = 5 * time.Minute
	}
	if c.MaxListEntries <= 0 {
		c.MaxListEntries = 100
	}
	if c.MaxSearchEntries <= 0 {
		c.MaxSearchEntries = 50
	}
	if c.MaxTaskRecords <= 0 {
		c.MaxTaskRecords = 1000
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// ListPage is one cached page of a filtered list listing.
type ListPage struct {
	ListID   string           `json:"listId"`
	ListName string           `json:"listName,omitempty"`
	ListURL  string           `json:"listUrl,omitempty"`
	Filters  Filters          `json:"filters"`
	Page     int              `json:"page"`
	Tasks    []Task           `json:"tasks"`
	Items    []map[string]any `json:"items,omitempty"`
	Total    int              `json:"total"`
}

// SearchEntry is one cached search result page with its derived index.
type SearchEntry struct {
	Records   []Task `json:"records"`
	Index     Index  `json:"index"`
	Signature string `json:"signature,omitempty"`
	Total     int    `json:"total"`
}

// ContextIndex is a signature-keyed record set with its derived index,
// shared by every query that produced the same records.
type ContextIndex struct {
	Records []Task `json:"records"`
	Index   Index  `json:"index"`
}

type listEntry struct {
	page      ListPage
	fetchedAt time.Time
	expiresAt time.Time
}

type searchEntry struct {
	entry     SearchEntry
	fetchedAt time.Time
	expiresAt time.Time
}

type contextEntry struct {
	index     ContextIndex
	fetchedAt time.Time
	expiresAt time.Time
}

type taskEntry struct {
	record    Task
	fetchedAt time.Time
	expiresAt time.Time
}

// Catalog caches task listings and searches across four linked stores.
//
// Contract:
// - Concurrency: safe for concurrent use; cross-store cascades run
//   under one lock so no reader observes a half-applied invalidation.
// - Errors: reads report misses as ok=false, never as errors.
type Catalog struct {
	mu       sync.RWMutex
	lists    map[string]*listEntry
	searches map[string]*searchEntry
	contexts map[string]*contextEntry
	tasks    map[string]*taskEntry

	config  Config
	now     func() time.Time
	logger  observe.Logger
	metrics *observe.CacheMetrics
}

// New creates a catalog. logger and metrics may be nil.
func New(config Config, logger observe.Logger, metrics *observe.CacheMetrics) *Catalog {
	config = config.withDefaults()
	return &Catalog{
		lists:    make(map[string]*listEntry),
		searches: make(map[string]*searchEntry),
		contexts: make(map[string]*contextEntry),
		tasks:    make(map[string]*taskEntry),
		config:   config,
		now:      config.Now,
		logger:   observe.OrNop(logger).WithComponent(component),
		metrics:  metrics,
	}
}

// StoreListPage caches one list page. Task records missing list fields
// inherit them from the page, and every record feeds the flat lookup.
func (c *Catalog) StoreListPage(ctx context.Context, page ListPage) {
	now := c.now()
	for i := range page.Tasks {
		if page.Tasks[i].ListID == "" {
			page.Tasks[i].ListID = page.ListID
		}
		if page.Tasks[i].ListName == "" {
			page.Tasks[i].ListName = page.ListName
		}
		if page.Tasks[i].ListURL == "" {
			page.Tasks[i].ListURL = page.ListURL
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := ListKey(page.ListID, page.Filters, page.Page)
	c.lists[key] = &listEntry{page: page, fetchedAt: now, expiresAt: now.Add(c.config.ListTTL)}
	c.storeTaskRecordsLocked(now, page.Tasks)
	c.evictListsLocked(ctx)
	c.evictTasksLocked(ctx)
}

// GetListPage returns a cached list page, expiring it lazily.
func (c *Catalog) GetListPage(ctx context.Context, listID string, filters Filters, page int) (ListPage, bool) {
	key := ListKey(listID, filters, page)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lists[key]
	if !ok {
		c.metrics.Miss(ctx, component)
		return ListPage{}, false
	}
	if now.After(entry.expiresAt) {
		delete(c.lists, key)
		c.metrics.Miss(ctx, component)
		return ListPage{}, false
	}
	c.metrics.Hit(ctx, component)
	return entry.page, true
}

// StoreSearchEntry caches a search result page. The entry's index and
// signature are derived here; a signatured record set also lands in the
// context store, and every record feeds the flat lookup.
func (c *Catalog) StoreSearchEntry(ctx context.Context, teamID string, params map[string]any, records []Task, total int) SearchEntry {
	now := c.now()
	entry := SearchEntry{
		Records:   records,
		Index:     BuildIndex(records),
		Signature: Signature(records),
		Total:     total,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := SearchKey(teamID, params)
	c.searches[key] = &searchEntry{entry: entry, fetchedAt: now, expiresAt: now.Add(c.config.SearchTTL)}
	if entry.Signature != "" {
		c.contexts[entry.Signature] = &contextEntry{
			index:     ContextIndex{Records: records, Index: entry.Index},
			fetchedAt: now,
			expiresAt: now.Add(c.config.SearchTTL),
		}
	}
	c.storeTaskRecordsLocked(now, records)
	c.evictSearchesLocked(ctx)
	c.evictContextsLocked(ctx)
	c.evictTasksLocked(ctx)
	return entry
}

// GetSearchEntry returns a cached search page. Reading an expired entry
// deletes it and purges the context entry its signature points at, so
// expiry cascades forward instead of waiting for explicit invalidation.
func (c *Catalog) GetSearchEntry(ctx context.Context, teamID string, params map[string]any) (SearchEntry, bool) {
	key := SearchKey(teamID, params)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.searches[key]
	if !ok {
		c.metrics.Miss(ctx, component)
		return SearchEntry{}, false
	}
	if now.After(entry.expiresAt) {
		delete(c.searches, key)
		if entry.entry.Signature != "" {
			delete(c.contexts, entry.entry.Signature)
		}
		c.metrics.Miss(ctx, component)
		return SearchEntry{}, false
	}
	c.metrics.Hit(ctx, component)
	return entry.entry, true
}

// StoreContextIndex caches a record set under its signature and returns
// that signature. A set with no identifiable records stores nothing and
// returns the empty string.
func (c *Catalog) StoreContextIndex(ctx context.Context, records []Task) string {
	signature := Signature(records)
	if signature == "" {
		return ""
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.contexts[signature] = &contextEntry{
		index:     ContextIndex{Records: records, Index: BuildIndex(records)},
		fetchedAt: now,
		expiresAt: now.Add(c.config.SearchTTL),
	}
	c.storeTaskRecordsLocked(now, records)
	c.evictContextsLocked(ctx)
	c.evictTasksLocked(ctx)
	return signature
}

// GetContextIndex returns the record set cached under a signature.
func (c *Catalog) GetContextIndex(ctx context.Context, signature string) (ContextIndex, bool) {
	if signature == "" {
		return ContextIndex{}, false
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.contexts[signature]
	if !ok {
		c.metrics.Miss(ctx, component)
		return ContextIndex{}, false
	}
	if now.After(entry.expiresAt) {
		delete(c.contexts, signature)
		c.metrics.Miss(ctx, component)
		return ContextIndex{}, false
	}
	c.metrics.Hit(ctx, component)
	return entry.index, true
}

// LookupTask returns the flat record for a task ID, expiring it lazily.
func (c *Catalog) LookupTask(ctx context.Context, taskID string) (Task, bool) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.tasks[taskID]
	if !ok {
		c.metrics.Miss(ctx, component)
		return Task{}, false
	}
	if now.After(entry.expiresAt) {
		delete(c.tasks, taskID)
		c.metrics.Miss(ctx, component)
		return Task{}, false
	}
	c.metrics.Hit(ctx, component)
	return entry.record, true
}

// InvalidateList drops every cached page of a list and every context
// entry whose records include a task from it.
func (c *Catalog) InvalidateList(ctx context.Context, listID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, entry := range c.lists {
		if entry.page.ListID == listID {
			delete(c.lists, key)
			n++
		}
	}
	for signature, entry := range c.contexts {
		if recordsTouchList(entry.index.Records, listID) {
			delete(c.contexts, signature)
			n++
		}
	}
	c.metrics.Invalidation(ctx, component, n)
}

// InvalidateTask cascades a single task's removal across all four
// stores: list pages containing it, search entries containing it along
// with their linked contexts, context entries containing it, and the
// flat record.
func (c *Catalog) InvalidateTask(ctx context.Context, taskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, entry := range c.lists {
		if recordsContain(entry.page.Tasks, taskID) {
			delete(c.lists, key)
			n++
		}
	}
	for key, entry := range c.searches {
		if recordsContain(entry.entry.Records, taskID) {
			delete(c.searches, key)
			if entry.entry.Signature != "" {
				delete(c.contexts, entry.entry.Signature)
			}
			n++
		}
	}
	for signature, entry := range c.contexts {
		if recordsContain(entry.index.Records, taskID) {
			delete(c.contexts, signature)
			n++
		}
	}
	if _, ok := c.tasks[taskID]; ok {
		delete(c.tasks, taskID)
		n++
	}
	c.logger.Debug(ctx, "task invalidated",
		observe.F("taskId", taskID),
		observe.F("entries", n),
	)
	c.metrics.Invalidation(ctx, component, n)
}

// InvalidateSearch drops every search and context entry.
func (c *Catalog) InvalidateSearch(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.searches) + len(c.contexts)
	c.searches = make(map[string]*searchEntry)
	c.contexts = make(map[string]*contextEntry)
	c.metrics.Invalidation(ctx, component, n)
}

// InvalidateAll drops everything.
func (c *Catalog) InvalidateAll(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.lists) + len(c.searches) + len(c.contexts) + len(c.tasks)
	c.lists = make(map[string]*listEntry)
	c.searches = make(map[string]*searchEntry)
	c.contexts = make(map[string]*contextEntry)
	c.tasks = make(map[string]*taskEntry)
	c.metrics.Invalidation(ctx, component, n)
}

func (c *Catalog) storeTaskRecordsLocked(now time.Time, records []Task) {
	expiresAt := now.Add(c.config.TaskTTL)
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		c.tasks[r.ID] = &taskEntry{record: r, fetchedAt: now, expiresAt: expiresAt}
	}
}

func recordsContain(records []Task, taskID string) bool {
	for _, r := range records {
		if r.ID == taskID {
			return true
		}
	}
	return false
}

func recordsTouchList(records []Task, listID string) bool {
	for _, r := range records {
		if r.ListID == listID {
			return true
		}
	}
	return false
}

// aged pairs a key with its entry age for eviction ordering.
type aged struct {
	key       string
	fetchedAt time.Time
}

// oldestKeys returns the keys to evict so at most limit entries remain,
// oldest fetchedAt first with the key as a stable tie-break.
func oldestKeys(entries []aged, limit int) []string {
	if len(entries) <= limit {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].fetchedAt.Equal(entries[j].fetchedAt) {
			return entries[i].key < entries[j].key
		}
		return entries[i].fetchedAt.Before(entries[j].fetchedAt)
	})
	victims := make([]string, len(entries)-limit)
	for i := range victims {
		victims[i] = entries[i].key
	}
	return victims
}

func (c *Catalog) evictListsLocked(ctx context.Context) {
	entries := make([]aged, 0, len(c.lists))
	for key, e := range c.lists {
		entries = append(entries, aged{key, e.fetchedAt})
	}
	for _, key := range oldestKeys(entries, c.config.MaxListEntries) {
		delete(c.lists, key)
		c.metrics.Eviction(ctx, component, 1)
	}
}

// evictSearchesLocked also purges the context entry linked to each
// evicted search entry's signature.
func (c *Catalog) evictSearchesLocked(ctx context.Context) {
	entries := make([]aged, 0, len(c.searches))
	for key, e := range c.searches {
		entries = append(entries, aged{key, e.fetchedAt})
	}
	for _, key := range oldestKeys(entries, c.config.MaxSearchEntries) {
		if entry := c.searches[key]; entry != nil && entry.entry.Signature != "" {
			delete(c.contexts, entry.entry.Signature)
		}
		delete(c.searches, key)
		c.metrics.Eviction(ctx, component, 1)
	}
}

func (c *Catalog) evictContextsLocked(ctx context.Context) {
	entries := make([]aged, 0, len(c.contexts))
	for key, e := range c.contexts {
		entries = append(entries, aged{key, e.fetchedAt})
	}
	for _, key := range oldestKeys(entries, c.config.MaxSearchEntries) {
		delete(c.contexts, key)
		c.metrics.Eviction(ctx, component, 1)
	}
}

func (c *Catalog) evictTasksLocked(ctx context.Context) {
	entries := make([]aged, 0, len(c.tasks))
	for key, e := range c.tasks {
		entries = append(entries, aged{key, e.fetchedAt})
	}
	for _, key := range oldestKeys(entries, c.config.MaxTaskRecords) {
		delete(c.tasks, key)
		c.metrics.Eviction(ctx, component, 1)
	}
}
