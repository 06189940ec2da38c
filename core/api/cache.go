package api

import (
	"context"
	"sort"

	"github.com/Fox6935/kemono-epub-creator/core"
)

// WildcardQuery is the search term used by the bulk-prefetch pass.
// The list endpoint only includes full post bodies when a search query
// is present, so prefetching rides on a term that matches everything.
// This is a workaround for a host limitation and inherently fragile.
const WildcardQuery = "a"

// maxPrefetchPages bounds how many list pages a prefetch pass touches.
const maxPrefetchPages = 5

// DetailCache holds full post content for the lifetime of one
// generation run. It guarantees at most one network fetch per post id
// per run. It is owned by a single run and needs no locking.
type DetailCache struct {
	posts map[string]*core.PostDetail
}

// NewDetailCache creates an empty DetailCache.
func NewDetailCache() *DetailCache {
	return &DetailCache{posts: make(map[string]*core.PostDetail)}
}

// Get returns the cached detail for id, or nil.
func (c *DetailCache) Get(id string) *core.PostDetail {
	return c.posts[id]
}

// Put stores a detail under its post id.
func (c *DetailCache) Put(detail *core.PostDetail) {
	if detail != nil && detail.ID != "" {
		c.posts[detail.ID] = detail
	}
}

// Len returns the number of cached posts.
func (c *DetailCache) Len() int {
	return len(c.posts)
}

// BulkPrefetch speculatively populates the cache by fetching the list
// pages the selected stubs came from, hoping full bodies ride along in
// the bulk search response. Best-effort: any failure or empty result
// degrades into per-post fetching by the caller.
func BulkPrefetch(ctx context.Context, client core.Client, cache *DetailCache, service, creatorID string, stubs []core.PostStub) int {
	offsets := prefetchOffsets(stubs)

	loaded := 0
	for _, offset := range offsets {
		details, err := client.SearchPosts(ctx, service, creatorID, offset, WildcardQuery)
		if err != nil {
			continue
		}
		for i := range details {
			d := details[i]
			if d.ContentHTML == "" || cache.Get(d.ID) != nil {
				continue
			}
			cache.Put(&d)
			loaded++
		}
	}
	return loaded
}

// prefetchOffsets derives the distinct page offsets implied by the
// stubs' pagination hints, aligned to the list page size and capped.
func prefetchOffsets(stubs []core.PostStub) []int {
	seen := make(map[int]bool)
	var offsets []int
	for _, s := range stubs {
		offset := (s.OriginalOffset / PageSize) * PageSize
		if offset < 0 || seen[offset] {
			continue
		}
		seen[offset] = true
		offsets = append(offsets, offset)
	}
	sort.Ints(offsets)
	if len(offsets) > maxPrefetchPages {
		offsets = offsets[:maxPrefetchPages]
	}
	return offsets
}
