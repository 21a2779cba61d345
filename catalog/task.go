package catalog

import (
	"strconv"
	"strings"
)

// Task is the normalized projection of an upstream task. Optional
// fields stay empty when the source shape lacks them.
type Task struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
	ListID      string `json:"listId,omitempty"`
	ListName    string `json:"listName,omitempty"`
	ListURL     string `json:"listUrl,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Normalize projects a raw upstream task object into a Task, tolerating
// the field-name and nesting variations the upstream uses.
func Normalize(raw map[string]any) Task {
	task := Task{
		ID:        stringField(raw, "id"),
		Name:      stringField(raw, "name"),
		UpdatedAt: stringField(raw, "date_updated", "dateUpdated", "updatedAt"),
		URL:       stringField(raw, "url"),
	}

	task.Description = stringField(raw, "description", "text_content", "textContent")

	switch status := raw["status"].(type) {
	case string:
		task.Status = status
	case map[string]any:
		task.Status = stringField(status, "status")
	}

	if list, ok := raw["list"].(map[string]any); ok {
		task.ListID = stringField(list, "id")
		task.ListName = stringField(list, "name")
		task.ListURL = stringField(list, "url")
	}
	if task.ListID == "" {
		task.ListID = stringField(raw, "list_id", "listId")
	}

	return task
}

// stringField returns the first non-empty value among the named fields,
// coercing numbers to their decimal form.
func stringField(m map[string]any, names ...string) string {
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

// Index maps normalized task names to the IDs carrying that name.
// Derived once at store time so repeated name lookups against a cached
// result set never rescan the records.
type Index map[string][]string

// BuildIndex indexes records by normalized name, skipping records with
// no ID or no name.
func BuildIndex(records []Task) Index {
	index := make(Index)
	for _, r := range records {
		name := normalizeName(r.Name)
		if name == "" || r.ID == "" {
			continue
		}
		index[name] = append(index[name], r.ID)
	}
	return index
}

// IDs returns the task IDs recorded under a name, nil when unknown.
func (ix Index) IDs(name string) []string {
	return ix[normalizeName(name)]
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
