package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Filters are the list-page query dimensions that participate in the
// cache key.
type Filters struct {
	IncludeClosed   bool `json:"includeClosed"`
	IncludeSubtasks bool `json:"includeSubtasks"`
}

// ListKey builds the cache key for one page of one filtered list.
func ListKey(listID string, filters Filters, page int) string {
	return fmt.Sprintf("list:%s:closed:%d:subs:%d:page:%d",
		listID, boolBit(filters.IncludeClosed), boolBit(filters.IncludeSubtasks), page)
}

func boolBit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SearchKey builds an order-independent cache key for a search query.
// Two semantically identical queries with differently ordered
// parameters produce the same key.
func SearchKey(teamID string, params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + serializeParam(params[k])
	}
	return "search:" + teamID + ":" + strings.Join(pairs, "&")
}

// serializeParam renders a parameter value deterministically: arrays
// join their serialized elements with commas, objects sort their keys
// and join "k:v" pairs with pipes.
func serializeParam(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, len(v))
		for i, el := range v {
			parts[i] = serializeParam(el)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(v, ",")
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ":" + serializeParam(v[k])
		}
		return strings.Join(parts, "|")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Signature derives a deterministic identity for a record set from its
// non-empty IDs, sorted and pipe-joined. Empty when no record carries
// an ID, in which case callers skip context caching.
func Signature(records []Task) string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		if r.ID != "" {
			ids = append(ids, r.ID)
		}
	}
	if len(ids) == 0 {
		return ""
	}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}
