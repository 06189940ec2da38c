// Package cmd — post selection helpers.
// Fetching every list page and filtering down to the user's selection
// happens here; the generator receives an already-sorted slice.
package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Fox6935/kemono-epub-creator/core"
	"github.com/Fox6935/kemono-epub-creator/core/api"
)

// maxListPages bounds pagination so a typo'd creator id cannot crawl
// forever.
const maxListPages = 200

// fetchAllStubs paginates through the creator's whole post list.
func fetchAllStubs(ctx context.Context, client core.Client, service, creatorID string) ([]core.PostStub, error) {
	var all []core.PostStub
	for page := 0; page < maxListPages; page++ {
		offset := page * api.PageSize
		stubs, total, err := client.ListPosts(ctx, service, creatorID, offset, 0)
		if err != nil {
			return nil, fmt.Errorf("listing posts at offset %d: %w", offset, err)
		}
		all = append(all, stubs...)
		if len(stubs) < api.PageSize {
			break
		}
		if total >= 0 && len(all) >= total {
			break
		}
	}
	return all, nil
}

// selection describes which posts the user asked for.
type selection struct {
	ids   []string // explicit post ids, comma separated on the CLI
	first int      // newest N
	last  int      // oldest N
	all   bool
}

func (s selection) validate() error {
	modes := 0
	if len(s.ids) > 0 {
		modes++
	}
	if s.first > 0 {
		modes++
	}
	if s.last > 0 {
		modes++
	}
	if s.all {
		modes++
	}
	if modes == 0 {
		return fmt.Errorf("select posts with --posts, --first, --last, or --all")
	}
	if modes > 1 {
		return fmt.Errorf("--posts, --first, --last, and --all are mutually exclusive")
	}
	return nil
}

// apply filters the stubs down to the selection and sorts the result
// ascending by publication time, the canonical chapter order.
func (s selection) apply(stubs []core.PostStub) ([]core.PostStub, error) {
	sorted := make([]core.PostStub, len(stubs))
	copy(sorted, stubs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.Before(sorted[j].PublishedAt)
	})

	switch {
	case s.all:
		return sorted, nil
	case s.first > 0:
		if s.first < len(sorted) {
			sorted = sorted[len(sorted)-s.first:]
		}
		return sorted, nil
	case s.last > 0:
		if s.last < len(sorted) {
			sorted = sorted[:s.last]
		}
		return sorted, nil
	}

	want := make(map[string]bool, len(s.ids))
	for _, id := range s.ids {
		want[strings.TrimSpace(id)] = true
	}
	var picked []core.PostStub
	for _, stub := range sorted {
		if want[stub.ID] {
			picked = append(picked, stub)
			delete(want, stub.ID)
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for id := range want {
			missing = append(missing, id)
		}
		sort.Strings(missing)
		return nil, fmt.Errorf("posts not found: %s", strings.Join(missing, ", "))
	}
	return picked, nil
}
