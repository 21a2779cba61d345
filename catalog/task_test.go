package catalog

import (
	"reflect"
	"testing"
)

func TestNormalize_UpstreamShape(t *testing.T) {
	raw := map[string]any{
		"id":           "T1",
		"name":         "Ship it",
		"text_content": "release checklist",
		"status":       map[string]any{"status": "in progress", "color": "#4194f6"},
		"date_updated": "1724490000000",
		"url":          "https://app.example.com/t/T1",
		"list": map[string]any{
			"id":   "L1",
			"name": "Sprint 12",
		},
	}

	got := Normalize(raw)
	want := Task{
		ID:          "T1",
		Name:        "Ship it",
		Description: "release checklist",
		Status:      "in progress",
		UpdatedAt:   "1724490000000",
		ListID:      "L1",
		ListName:    "Sprint 12",
		URL:         "https://app.example.com/t/T1",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize = %+v, want %+v", got, want)
	}
}

func TestNormalize_AlternateFieldNames(t *testing.T) {
	got := Normalize(map[string]any{
		"id":          float64(42),
		"name":        "Numeric id",
		"description": "plain field",
		"status":      "open",
		"listId":      "L9",
	})

	if got.ID != "42" {
		t.Errorf("ID = %q, want numeric coercion to \"42\"", got.ID)
	}
	if got.Description != "plain field" {
		t.Errorf("Description = %q", got.Description)
	}
	if got.Status != "open" {
		t.Errorf("Status = %q, want bare-string status accepted", got.Status)
	}
	if got.ListID != "L9" {
		t.Errorf("ListID = %q, want fallback to listId field", got.ListID)
	}
}

func TestNormalize_Sparse(t *testing.T) {
	got := Normalize(map[string]any{"name": "only a name"})
	if got.ID != "" || got.Status != "" || got.ListID != "" {
		t.Errorf("sparse input should leave optional fields empty: %+v", got)
	}
}

func TestBuildIndex_NormalizesNames(t *testing.T) {
	index := BuildIndex([]Task{
		{ID: "T1", Name: "Fix  Login   Bug"},
		{ID: "T2", Name: "fix login bug"},
		{ID: "T3", Name: "Other"},
		{ID: "", Name: "dropped"},
		{ID: "T4", Name: ""},
	})

	ids := index.IDs("FIX LOGIN BUG")
	if !reflect.DeepEqual(ids, []string{"T1", "T2"}) {
		t.Errorf("IDs = %v, want [T1 T2] regardless of case and spacing", ids)
	}
	if got := index.IDs("missing"); got != nil {
		t.Errorf("IDs for unknown name = %v, want nil", got)
	}
	if len(index) != 2 {
		t.Errorf("index has %d names, want 2 (no entries for empty ids or names)", len(index))
	}
}
