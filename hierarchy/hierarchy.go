package hierarchy

import (
	"context"
	"encoding/json"
	"strconv"
	"time"
)

// Scope identifies which level of the hierarchy an entry caches.
type Scope string

const (
	ScopeWorkspaces Scope = "workspaces"
	ScopeSpaces     Scope = "spaces"
	ScopeFolders    Scope = "folders"
	ScopeLists      Scope = "lists"
)

// Entity is a raw upstream hierarchy object. The directory indexes it
// without normalizing its fields.
type Entity map[string]any

// Parents names the ancestor identifiers an entry was fetched under,
// enabling targeted invalidation by ancestor.
type Parents struct {
	WorkspaceID string `json:"workspaceId,omitempty"`
	SpaceID     string `json:"spaceId,omitempty"`
	FolderID    string `json:"folderId,omitempty"`
}

// FetchFunc performs the upstream call for a scope. The directory never
// constructs or parses HTTP itself; it only extracts the listing from
// whatever envelope the response uses.
type FetchFunc func(ctx context.Context) (any, error)

// Options controls a single Ensure call.
type Options struct {
	// ForceRefresh bypasses a live entry and overwrites it.
	ForceRefresh bool
}

// Meta describes the cache state of a returned listing.
type Meta struct {
	LastFetched string `json:"lastFetched"`
	ExpiresAt   string `json:"expiresAt"`
	AgeMS       int64  `json:"ageMs"`
	TTLMS       int64  `json:"ttlMs"`
	Stale       bool   `json:"stale"`
	TotalItems  int    `json:"totalItems"`
}

// Result is a cached or freshly fetched listing with its metadata.
type Result struct {
	Scope   Scope    `json:"scope"`
	Key     string   `json:"key"`
	Items   []Entity `json:"items"`
	Parents Parents  `json:"context"`
	Meta    Meta     `json:"meta"`

	// FetchedAt is the raw timestamp behind Meta.LastFetched, used when
	// composing snapshots whose freshness is the minimum of their parts.
	FetchedAt time.Time `json:"-"`
}

// Cache keys per scope. Lists scoped to a folder and to a space never
// collide.
const workspacesKey = "workspaces"

func spacesKey(workspaceID string) string {
	return "spaces:" + workspaceID
}

func foldersKey(spaceID string) string {
	return "folders:" + spaceID
}

func listsKey(spaceID, folderID string) string {
	if folderID != "" {
		return "lists:folder:" + folderID
	}
	return "lists:space:" + spaceID
}

// envelopeField maps a scope to the field its upstream envelope uses.
func envelopeField(scope Scope) string {
	if scope == ScopeWorkspaces {
		return "teams"
	}
	return string(scope)
}

// extractItems pulls the listing out of a raw response, tolerating a
// bare array or an {<entityName>: [...]} envelope. Malformed shapes
// yield an empty list rather than an error.
func extractItems(raw any, field string) []Entity {
	switch v := raw.(type) {
	case nil:
		return []Entity{}
	case []Entity:
		return v
	case []map[string]any:
		items := make([]Entity, len(v))
		for i, m := range v {
			items[i] = Entity(m)
		}
		return items
	case []any:
		items := make([]Entity, 0, len(v))
		for _, el := range v {
			if m, ok := el.(map[string]any); ok {
				items = append(items, Entity(m))
			}
		}
		return items
	case map[string]any:
		return extractItems(v[field], field)
	case Entity:
		return extractItems(map[string]any(v)[field], field)
	default:
		return []Entity{}
	}
}

// EntityID returns the entity's identifier as a string, tolerating
// string and numeric forms. Empty when absent.
func EntityID(e Entity) string {
	switch id := e["id"].(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}
