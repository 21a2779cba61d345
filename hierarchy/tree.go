package hierarchy

import (
	"context"
	"time"

	"github.com/jonwraymond/clickops/bulk"
	"github.com/jonwraymond/clickops/cache"
)

// TreeFetchers supplies the upstream calls a full-tree traversal needs.
// All four are required.
type TreeFetchers struct {
	Spaces         FetchFunc
	Folders        func(ctx context.Context, spaceID string) (any, error)
	ListsForSpace  func(ctx context.Context, spaceID string) (any, error)
	ListsForFolder func(ctx context.Context, folderID string) (any, error)
}

// SpaceNode is one space with its folders and lists resolved.
type SpaceNode struct {
	Space   Entity       `json:"space"`
	Folders []FolderNode `json:"folders"`
	// Lists holds the space's folderless lists.
	Lists []Entity `json:"lists"`
}

// FolderNode is one folder with its lists resolved.
type FolderNode struct {
	Folder Entity   `json:"folder"`
	Lists  []Entity `json:"lists"`
}

// Tree is a full workspace snapshot. Its Meta reflects the freshness of
// the oldest constituent fetch, so a mixed hit/miss traversal reports
// the age a caller can actually rely on.
type Tree struct {
	WorkspaceID string      `json:"workspaceId"`
	Spaces      []SpaceNode `json:"spaces"`
	Meta        Meta        `json:"meta"`
}

// EnsureTree resolves the whole hierarchy under a workspace, fanning out
// across spaces with bounded concurrency. Each level goes through the
// directory, so live entries are reused and misses are fetched once.
func (d *Directory) EnsureTree(ctx context.Context, workspaceID string, fetchers TreeFetchers, concurrency int, opts Options) (Tree, error) {
	spaces, err := d.EnsureSpaces(ctx, workspaceID, fetchers.Spaces, opts)
	if err != nil {
		return Tree{}, err
	}

	type spaceResult struct {
		node      SpaceNode
		fetchedAt []time.Time
	}

	resolved, err := bulk.FanOut(ctx, spaces.Items, concurrency, func(ctx context.Context, space Entity) (spaceResult, error) {
		spaceID := EntityID(space)
		node := SpaceNode{Space: space}
		fetched := make([]time.Time, 0, 4)

		folders, err := d.EnsureFolders(ctx, spaceID, func(ctx context.Context) (any, error) {
			return fetchers.Folders(ctx, spaceID)
		}, opts)
		if err != nil {
			return spaceResult{}, err
		}
		fetched = append(fetched, folders.FetchedAt)

		lists, err := d.EnsureLists(ctx, spaceID, "", func(ctx context.Context) (any, error) {
			return fetchers.ListsForSpace(ctx, spaceID)
		}, opts)
		if err != nil {
			return spaceResult{}, err
		}
		fetched = append(fetched, lists.FetchedAt)
		node.Lists = lists.Items

		node.Folders = make([]FolderNode, 0, len(folders.Items))
		for _, folder := range folders.Items {
			folderID := EntityID(folder)
			folderLists, err := d.EnsureLists(ctx, spaceID, folderID, func(ctx context.Context) (any, error) {
				return fetchers.ListsForFolder(ctx, folderID)
			}, opts)
			if err != nil {
				return spaceResult{}, err
			}
			fetched = append(fetched, folderLists.FetchedAt)
			node.Folders = append(node.Folders, FolderNode{Folder: folder, Lists: folderLists.Items})
		}

		return spaceResult{node: node, fetchedAt: fetched}, nil
	})
	if err != nil {
		return Tree{}, err
	}

	fetchedAt := []time.Time{spaces.FetchedAt}
	nodes := make([]SpaceNode, len(resolved))
	total := len(spaces.Items)
	for i, r := range resolved {
		nodes[i] = r.node
		fetchedAt = append(fetchedAt, r.fetchedAt...)
		total += len(r.node.Lists)
		for _, f := range r.node.Folders {
			total += 1 + len(f.Lists)
		}
	}

	oldest := cache.MinFetchedAt(fetchedAt...)
	now := d.now()
	ageMS := now.Sub(oldest).Milliseconds()
	ttlMS := d.config.TTL.Milliseconds()

	return Tree{
		WorkspaceID: workspaceID,
		Spaces:      nodes,
		Meta: Meta{
			LastFetched: oldest.UTC().Format(time.RFC3339),
			ExpiresAt:   oldest.Add(d.config.TTL).UTC().Format(time.RFC3339),
			AgeMS:       ageMS,
			TTLMS:       ttlMS,
			Stale:       ageMS > ttlMS,
			TotalItems:  total,
		},
	}, nil
}
