package catalog

import "testing"

func TestListKey(t *testing.T) {
	got := ListKey("L1", Filters{IncludeClosed: true}, 2)
	want := "list:L1:closed:1:subs:0:page:2"
	if got != want {
		t.Errorf("ListKey = %q, want %q", got, want)
	}
}

func TestSearchKey_OrderIndependent(t *testing.T) {
	a := SearchKey("team1", map[string]any{"a": 1, "b": 2})
	b := SearchKey("team1", map[string]any{"b": 2, "a": 1})
	if a != b {
		t.Errorf("keys differ for reordered params: %q vs %q", a, b)
	}
}

func TestSearchKey_NestedValues(t *testing.T) {
	a := SearchKey("team1", map[string]any{
		"statuses": []any{"open", "review"},
		"assignees": map[string]any{
			"add":    []any{"u1", "u2"},
			"remove": []any{},
		},
	})
	b := SearchKey("team1", map[string]any{
		"assignees": map[string]any{
			"remove": []any{},
			"add":    []any{"u1", "u2"},
		},
		"statuses": []any{"open", "review"},
	})
	if a != b {
		t.Errorf("nested params must serialize order-independently: %q vs %q", a, b)
	}

	want := "search:team1:assignees=add:u1,u2|remove:&statuses=open,review"
	if a != want {
		t.Errorf("SearchKey = %q, want %q", a, want)
	}
}

func TestSearchKey_DistinctValuesDistinctKeys(t *testing.T) {
	a := SearchKey("team1", map[string]any{"page": 0})
	b := SearchKey("team1", map[string]any{"page": 1})
	if a == b {
		t.Errorf("different params should not collide: %q", a)
	}
}

func TestSignature(t *testing.T) {
	records := []Task{{ID: "T3"}, {ID: "T1"}, {Name: "no id"}, {ID: "T2"}}
	if got, want := Signature(records), "T1|T2|T3"; got != want {
		t.Errorf("Signature = %q, want %q", got, want)
	}
}

func TestSignature_NoIDs(t *testing.T) {
	if got := Signature([]Task{{Name: "a"}, {Name: "b"}}); got != "" {
		t.Errorf("Signature = %q, want empty for an ID-less set", got)
	}
	if got := Signature(nil); got != "" {
		t.Errorf("Signature(nil) = %q, want empty", got)
	}
}
