package hierarchy

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/jonwraymond/clickops/cache"
	"github.com/jonwraymond/clickops/observe"
	"github.com/jonwraymond/clickops/session"
)

const component = "hierarchy"

// Config configures a Directory.
type Config struct {
	// TTL is how long a listing stays live.
	// Default: 5 minutes
	TTL time.Duration

	// TeamID keys the persisted snapshot in the session store. Required
	// only when a session store is attached.
	TeamID string

	// SaveTimeout bounds each background snapshot save.
	// Default: 5s
	SaveTimeout time.Duration

	// Now overrides the time source for tests.
	Now func() time.Time
}

// entryValue is what the directory stores per (scope, key).
type entryValue struct {
	Scope   Scope    `json:"scope"`
	Items   []Entity `json:"items"`
	Parents Parents  `json:"context"`
}

// snapshotEntry is the persisted form of a cache entry.
type snapshotEntry struct {
	Scope     Scope     `json:"scope"`
	Items     []Entity  `json:"items"`
	Parents   Parents   `json:"context"`
	FetchedAt time.Time `json:"fetchedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Directory caches hierarchy listings with scope-aware keys.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: fetch failures pass through unwrapped; persistence failures
//   are swallowed (logged at debug) and never affect the read path.
type Directory struct {
	store    *cache.Store[entryValue]
	sessions session.Store
	config   Config
	logger   observe.Logger
	metrics  *observe.CacheMetrics
	now      func() time.Time

	restoreOnce sync.Once
}

// New creates a directory. sessions, logger and metrics may all be nil.
func New(config Config, sessions session.Store, logger observe.Logger, metrics *observe.CacheMetrics) *Directory {
	if config.TTL == 0 {
		config.TTL = 5 * time.Minute
	}
	if config.SaveTimeout <= 0 {
		config.SaveTimeout = 5 * time.Second
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Directory{
		store: cache.NewStore[entryValue](cache.Config{
			TTL: config.TTL,
			Now: config.Now,
		}),
		sessions: sessions,
		config:   config,
		logger:   observe.OrNop(logger).WithComponent(component),
		metrics:  metrics,
		now:      config.Now,
	}
}

// EnsureWorkspaces returns the cached workspace listing or fetches it.
func (d *Directory) EnsureWorkspaces(ctx context.Context, fetch FetchFunc, opts Options) (Result, error) {
	return d.ensure(ctx, ScopeWorkspaces, workspacesKey, Parents{}, fetch, opts)
}

// EnsureSpaces returns the cached space listing for a workspace or
// fetches it.
func (d *Directory) EnsureSpaces(ctx context.Context, workspaceID string, fetch FetchFunc, opts Options) (Result, error) {
	parents := Parents{WorkspaceID: workspaceID}
	return d.ensure(ctx, ScopeSpaces, spacesKey(workspaceID), parents, fetch, opts)
}

// EnsureFolders returns the cached folder listing for a space or fetches
// it.
func (d *Directory) EnsureFolders(ctx context.Context, spaceID string, fetch FetchFunc, opts Options) (Result, error) {
	parents := Parents{SpaceID: spaceID}
	return d.ensure(ctx, ScopeFolders, foldersKey(spaceID), parents, fetch, opts)
}

// EnsureLists returns the cached list listing for a space or folder.
// When folderID is set the entry is keyed by folder, otherwise by space;
// the two scopes never collide.
func (d *Directory) EnsureLists(ctx context.Context, spaceID, folderID string, fetch FetchFunc, opts Options) (Result, error) {
	parents := Parents{SpaceID: spaceID, FolderID: folderID}
	return d.ensure(ctx, ScopeLists, listsKey(spaceID, folderID), parents, fetch, opts)
}

func (d *Directory) ensure(ctx context.Context, scope Scope, key string, parents Parents, fetch FetchFunc, opts Options) (Result, error) {
	d.restore(ctx)

	stored := false
	entry, fromCache, err := d.store.Ensure(ctx, key, opts.ForceRefresh, func(ctx context.Context) (entryValue, error) {
		raw, err := fetch(ctx)
		if err != nil {
			return entryValue{}, err
		}
		stored = true
		return entryValue{
			Scope:   scope,
			Items:   extractItems(raw, envelopeField(scope)),
			Parents: parents,
		}, nil
	})
	if err != nil {
		return Result{}, err
	}

	if fromCache {
		d.metrics.Hit(ctx, component)
	} else {
		d.metrics.Miss(ctx, component)
	}
	if stored {
		d.persistAsync(ctx)
	}

	return d.result(key, entry), nil
}

func (d *Directory) result(key string, entry cache.Entry[entryValue]) Result {
	now := d.now()
	ageMS := now.Sub(entry.FetchedAt).Milliseconds()
	ttlMS := d.config.TTL.Milliseconds()

	return Result{
		Scope:   entry.Value.Scope,
		Key:     key,
		Items:   entry.Value.Items,
		Parents: entry.Value.Parents,
		Meta: Meta{
			LastFetched: entry.FetchedAt.UTC().Format(time.RFC3339),
			ExpiresAt:   entry.ExpiresAt.UTC().Format(time.RFC3339),
			AgeMS:       ageMS,
			TTLMS:       ttlMS,
			Stale:       ageMS > ttlMS,
			TotalItems:  len(entry.Value.Items),
		},
		FetchedAt: entry.FetchedAt,
	}
}

// InvalidateWorkspaces drops the workspace listing and cascades through
// every scope below it.
func (d *Directory) InvalidateWorkspaces(ctx context.Context) {
	n := d.store.Clear()
	d.metrics.Invalidation(ctx, component, n)
	d.persistAsync(ctx)
}

// InvalidateSpaces drops space listings. With an empty workspaceID it
// clears every space, folder and list entry; with one it targets that
// workspace's spaces.
func (d *Directory) InvalidateSpaces(ctx context.Context, workspaceID string) {
	var n int
	if workspaceID == "" {
		n = d.store.DeleteFunc(func(_ string, entry cache.Entry[entryValue]) bool {
			return entry.Value.Scope != ScopeWorkspaces
		})
	} else {
		n = d.store.DeleteFunc(func(key string, entry cache.Entry[entryValue]) bool {
			if key == spacesKey(workspaceID) {
				return true
			}
			// Entries below this workspace, where the caller recorded it.
			return entry.Value.Parents.WorkspaceID == workspaceID && entry.Value.Scope != ScopeWorkspaces
		})
	}
	d.metrics.Invalidation(ctx, component, n)
	d.persistAsync(ctx)
}

// InvalidateFolders drops folder listings, all of them or one space's.
func (d *Directory) InvalidateFolders(ctx context.Context, spaceID string) {
	var n int
	if spaceID == "" {
		n = d.store.DeleteFunc(func(_ string, entry cache.Entry[entryValue]) bool {
			return entry.Value.Scope == ScopeFolders
		})
	} else if d.store.Delete(foldersKey(spaceID)) {
		n = 1
	}
	d.metrics.Invalidation(ctx, component, n)
	d.persistAsync(ctx)
}

// InvalidateListsForSpace drops the list listing keyed by a space.
func (d *Directory) InvalidateListsForSpace(ctx context.Context, spaceID string) {
	n := d.store.DeleteFunc(func(key string, entry cache.Entry[entryValue]) bool {
		return strings.HasPrefix(key, "lists:") && entry.Value.Parents.SpaceID == spaceID
	})
	d.metrics.Invalidation(ctx, component, n)
	d.persistAsync(ctx)
}

// InvalidateListsForFolder drops the list listing keyed by a folder.
func (d *Directory) InvalidateListsForFolder(ctx context.Context, folderID string) {
	var n int
	if d.store.Delete(listsKey("", folderID)) {
		n = 1
	}
	d.metrics.Invalidation(ctx, component, n)
	d.persistAsync(ctx)
}

// InvalidateAll drops every entry.
func (d *Directory) InvalidateAll(ctx context.Context) {
	d.metrics.Invalidation(ctx, component, d.store.Clear())
	d.persistAsync(ctx)
}

// restore lazily loads a prior snapshot from the session store on first
// access. Expired entries are dropped; any failure leaves the directory
// purely in-memory.
func (d *Directory) restore(ctx context.Context) {
	if d.sessions == nil {
		return
	}
	d.restoreOnce.Do(func() {
		data, err := d.sessions.Load(ctx, d.config.TeamID)
		if err != nil {
			d.logger.Debug(ctx, "snapshot load failed", observe.F("error", err.Error()))
			return
		}
		if len(data) == 0 {
			return
		}

		var snapshot map[string]snapshotEntry
		if err := json.Unmarshal(data, &snapshot); err != nil {
			d.logger.Debug(ctx, "snapshot decode failed", observe.F("error", err.Error()))
			return
		}

		now := d.now()
		restored := 0
		for key, se := range snapshot {
			if now.After(se.ExpiresAt) {
				continue
			}
			d.store.SetEntry(key, cache.Entry[entryValue]{
				Value:     entryValue{Scope: se.Scope, Items: se.Items, Parents: se.Parents},
				FetchedAt: se.FetchedAt,
				ExpiresAt: se.ExpiresAt,
			})
			restored++
		}
		d.logger.Debug(ctx, "snapshot restored", observe.F("entries", restored))
	})
}

// persistAsync saves the current state in the background. Fire and
// forget: the caller's latency and correctness never depend on it.
func (d *Directory) persistAsync(ctx context.Context) {
	if d.sessions == nil {
		return
	}
	go func() {
		saveCtx, cancel := context.WithTimeout(context.Background(), d.config.SaveTimeout)
		defer cancel()
		d.persist(saveCtx)
	}()
}

// persist synchronously saves the non-expired entries.
func (d *Directory) persist(ctx context.Context) {
	snapshot := make(map[string]snapshotEntry)
	d.store.ForEach(func(key string, entry cache.Entry[entryValue]) bool {
		snapshot[key] = snapshotEntry{
			Scope:     entry.Value.Scope,
			Items:     entry.Value.Items,
			Parents:   entry.Value.Parents,
			FetchedAt: entry.FetchedAt,
			ExpiresAt: entry.ExpiresAt,
		}
		return true
	})

	data, err := json.Marshal(snapshot)
	if err != nil {
		d.logger.Debug(ctx, "snapshot encode failed", observe.F("error", err.Error()))
		return
	}
	if err := d.sessions.Save(ctx, d.config.TeamID, data); err != nil {
		d.logger.Debug(ctx, "snapshot save failed", observe.F("error", err.Error()))
	}
}
