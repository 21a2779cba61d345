package hierarchy

import (
	"context"
	"errors"
	"testing"
	"time"
)

func treeFetchers() TreeFetchers {
	return TreeFetchers{
		Spaces: func(context.Context) (any, error) {
			return []any{
				map[string]any{"id": "sp1", "name": "Eng"},
				map[string]any{"id": "sp2", "name": "Design"},
			}, nil
		},
		Folders: func(_ context.Context, spaceID string) (any, error) {
			if spaceID == "sp1" {
				return []any{map[string]any{"id": "f1", "name": "Sprints"}}, nil
			}
			return []any{}, nil
		},
		ListsForSpace: func(_ context.Context, spaceID string) (any, error) {
			return []any{map[string]any{"id": "l-" + spaceID}}, nil
		},
		ListsForFolder: func(_ context.Context, folderID string) (any, error) {
			return []any{map[string]any{"id": "l-" + folderID}}, nil
		},
	}
}

func TestEnsureTree_FullTraversal(t *testing.T) {
	d := newTestDirectory(newFakeClock())

	tree, err := d.EnsureTree(context.Background(), "ws1", treeFetchers(), 2, Options{})
	if err != nil {
		t.Fatalf("EnsureTree failed: %v", err)
	}

	if tree.WorkspaceID != "ws1" {
		t.Errorf("WorkspaceID = %q, want ws1", tree.WorkspaceID)
	}
	if len(tree.Spaces) != 2 {
		t.Fatalf("spaces = %d, want 2", len(tree.Spaces))
	}
	if tree.Spaces[0].Space["id"] != "sp1" || tree.Spaces[1].Space["id"] != "sp2" {
		t.Error("spaces should keep their input order")
	}

	eng := tree.Spaces[0]
	if len(eng.Folders) != 1 || eng.Folders[0].Folder["id"] != "f1" {
		t.Fatalf("sp1 folders = %v, want one folder f1", eng.Folders)
	}
	if len(eng.Folders[0].Lists) != 1 || eng.Folders[0].Lists[0]["id"] != "l-f1" {
		t.Errorf("f1 lists = %v, want l-f1", eng.Folders[0].Lists)
	}
	if len(eng.Lists) != 1 || eng.Lists[0]["id"] != "l-sp1" {
		t.Errorf("sp1 folderless lists = %v, want l-sp1", eng.Lists)
	}

	// 2 spaces + 1 folder + 3 lists.
	if tree.Meta.TotalItems != 6 {
		t.Errorf("TotalItems = %d, want 6", tree.Meta.TotalItems)
	}
}

func TestEnsureTree_MetaUsesOldestFetch(t *testing.T) {
	clock := newFakeClock()
	d := newTestDirectory(clock)
	fetchers := treeFetchers()
	ctx := context.Background()

	spacesFetch, _ := fetchReturning([]any{
		map[string]any{"id": "sp1"},
		map[string]any{"id": "sp2"},
	})
	if _, err := d.EnsureSpaces(ctx, "ws1", spacesFetch, Options{}); err != nil {
		t.Fatalf("seed spaces: %v", err)
	}

	// Everything below the space listing is fetched 40s later; the
	// composite must report the older space listing.
	clock.Advance(40 * time.Second)
	tree, err := d.EnsureTree(ctx, "ws1", fetchers, 2, Options{})
	if err != nil {
		t.Fatalf("EnsureTree failed: %v", err)
	}

	if tree.Meta.AgeMS != 40_000 {
		t.Errorf("AgeMS = %d, want 40000 (oldest constituent)", tree.Meta.AgeMS)
	}
	if tree.Meta.Stale {
		t.Error("40s old under a 60s TTL is not stale")
	}
}

func TestEnsureTree_ReusesCachedLevels(t *testing.T) {
	d := newTestDirectory(newFakeClock())
	ctx := context.Background()

	if _, err := d.EnsureTree(ctx, "ws1", treeFetchers(), 2, Options{}); err != nil {
		t.Fatalf("first EnsureTree failed: %v", err)
	}

	failing := TreeFetchers{
		Spaces:         func(context.Context) (any, error) { return nil, errors.New("must not fetch") },
		Folders:        func(context.Context, string) (any, error) { return nil, errors.New("must not fetch") },
		ListsForSpace:  func(context.Context, string) (any, error) { return nil, errors.New("must not fetch") },
		ListsForFolder: func(context.Context, string) (any, error) { return nil, errors.New("must not fetch") },
	}
	tree, err := d.EnsureTree(ctx, "ws1", failing, 2, Options{})
	if err != nil {
		t.Fatalf("cached EnsureTree failed: %v", err)
	}
	if len(tree.Spaces) != 2 {
		t.Errorf("spaces = %d, want 2 from cache", len(tree.Spaces))
	}
}

func TestEnsureTree_FolderFetchErrorFailsWhole(t *testing.T) {
	d := newTestDirectory(newFakeClock())
	fetchers := treeFetchers()
	wantErr := errors.New("folders 500")
	fetchers.Folders = func(context.Context, string) (any, error) {
		return nil, wantErr
	}

	_, err := d.EnsureTree(context.Background(), "ws1", fetchers, 2, Options{})
	if !errors.Is(err, wantErr) {
		t.Errorf("EnsureTree error = %v, want %v", err, wantErr)
	}
}
