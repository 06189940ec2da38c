// Package generate drives the end-to-end EPUB generation: resolve
// creator metadata, fetch each selected post, normalize it, and feed
// the archive packer, reporting progress along the way.
//
// Posts are processed strictly sequentially. The packer and the detail
// cache are owned by one run; the host's rate limit makes concurrency
// pointless anyway.
package generate

import (
	"context"
	"fmt"

	"github.com/Fox6935/kemono-epub-creator/core"
	"github.com/Fox6935/kemono-epub-creator/core/api"
	"github.com/Fox6935/kemono-epub-creator/core/encode"
	"github.com/Fox6935/kemono-epub-creator/core/epub"
	"github.com/Fox6935/kemono-epub-creator/core/normalize"
)

// defaultStylesheet is the shared stylesheet every book gets.
const defaultStylesheet = `body { margin: 1em; line-height: 1.5; }
h1 { font-size: 1.4em; margin-bottom: 0.6em; }
img { max-width: 100%; height: auto; }
blockquote { margin-left: 1em; padding-left: 0.5em; border-left: 2px solid #999; }
em.missing { color: #666; }
`

// Options configures one generation run.
type Options struct {
	Creator core.CreatorInfo
	// Title is the book title; defaults to the creator display name.
	Title string
	// CoverURL, when set, is fetched and packaged as the cover. A
	// failure here skips the cover, never the run.
	CoverURL string
	// Prefetch enables the best-effort bulk-prefetch pass.
	Prefetch bool
	// ForcePNG re-encodes every raster image to PNG.
	ForcePNG bool
	// KeepQueryVariants treats asset URLs differing only in query
	// string as distinct assets.
	KeepQueryVariants bool
	// EpubVersion is 2 or 3 (default 3).
	EpubVersion int

	SiteBaseURL string
	DataBaseURL string
}

// Generator assembles one EPUB from selected posts.
type Generator struct {
	client   core.Client
	opts     Options
	progress core.Progress

	lastPercent float64
}

// New creates a Generator. progress may be nil.
func New(client core.Client, opts Options, progress core.Progress) *Generator {
	return &Generator{client: client, opts: opts, progress: progress}
}

// report forwards progress, keeping the percentage monotonically
// non-decreasing; core.ProgressMessageOnly leaves it unchanged.
func (g *Generator) report(percent float64, format string, args ...any) {
	if g.progress == nil {
		return
	}
	if percent == core.ProgressMessageOnly {
		g.progress(core.ProgressMessageOnly, fmt.Sprintf(format, args...))
		return
	}
	if percent < g.lastPercent {
		percent = g.lastPercent
	}
	g.lastPercent = percent
	g.progress(percent, fmt.Sprintf(format, args...))
}

// Generate builds the archive from the selected posts. selected must
// be pre-sorted ascending by publication time; the generator does not
// re-sort. Per-post failures are reported and skipped; the archive
// completes with whatever subset succeeded.
func (g *Generator) Generate(ctx context.Context, selected []core.PostStub) ([]byte, error) {
	creator := g.opts.Creator
	g.report(0, "Resolving creator %s/%s", creator.Service, creator.CreatorID)

	author := creator.DisplayName
	if author == "" {
		name, err := g.client.CreatorProfile(ctx, creator.Service, creator.CreatorID)
		if err != nil || name == "" {
			author = "Unknown"
		} else {
			author = name
		}
	}
	title := g.opts.Title
	if title == "" {
		title = author
	}

	packer := epub.New(title, author, epub.Options{Version: g.opts.EpubVersion})
	if err := packer.AddStylesheet(defaultStylesheet); err != nil {
		return nil, err
	}
	g.report(5, "Creating \"%s\" by %s", title, author)

	if g.opts.CoverURL != "" {
		g.addCover(ctx, packer)
	}

	cache := api.NewDetailCache()
	if g.opts.Prefetch {
		api.BulkPrefetch(ctx, g.client, cache, creator.Service, creator.CreatorID, selected)
		if cache.Len() > 0 {
			g.report(core.ProgressMessageOnly, "Prefetched %d of %d posts", cache.Len(), len(selected))
		}
	}

	normalizer := normalize.New(g.client, encode.New(g.opts.ForcePNG), normalize.Options{
		SiteBaseURL:        g.opts.SiteBaseURL,
		DataBaseURL:        g.opts.DataBaseURL,
		DedupIgnoreQuery:   !g.opts.KeepQueryVariants,
		IncludeAttachments: true,
	})

	for i, stub := range selected {
		if err := ctx.Err(); err != nil {
			// Cancellation discards the whole in-memory archive state.
			return nil, err
		}

		percent := 10 + 85*float64(i)/float64(len(selected))
		g.report(percent, "Processing %d/%d: %s", i+1, len(selected), stub.Title)

		if err := g.addPost(ctx, packer, normalizer, cache, stub); err != nil {
			g.report(core.ProgressMessageOnly, "Skipping \"%s\": %v", stub.Title, err)
			continue
		}
	}

	if err := packer.AddTableOfContentsPage(); err != nil {
		return nil, err
	}

	g.report(95, "Packing archive (%d chapters)", packer.ChapterCount())
	blob, err := packer.PackToBlob()
	if err != nil {
		return nil, fmt.Errorf("packing archive: %w", err)
	}
	g.report(100, "Done")
	return blob, nil
}

// addCover fetches and registers the cover image. Failures are
// reported and skipped.
func (g *Generator) addCover(ctx context.Context, packer *epub.Packer) {
	raw, err := g.client.FetchBinary(ctx, g.opts.CoverURL)
	if err != nil {
		g.report(core.ProgressMessageOnly, "Skipping cover: %v", err)
		return
	}
	if err := packer.AddCoverImage(raw, g.opts.CoverURL); err != nil {
		g.report(core.ProgressMessageOnly, "Skipping cover: %v", err)
	}
}

// addPost fetches one post's detail (cache first), normalizes it, and
// registers its assets and chapter with the packer.
func (g *Generator) addPost(ctx context.Context, packer *epub.Packer, normalizer *normalize.Normalizer, cache *api.DetailCache, stub core.PostStub) error {
	detail := cache.Get(stub.ID)
	if detail == nil {
		fetched, err := g.client.GetPostDetail(ctx, g.opts.Creator.Service, g.opts.Creator.CreatorID, stub.ID)
		if err != nil {
			return fmt.Errorf("fetching detail: %w", err)
		}
		cache.Put(fetched)
		detail = fetched
	}

	result, err := normalizer.Normalize(ctx, detail.ID, detail.ContentHTML, detail.Attachments)
	if err != nil {
		return fmt.Errorf("normalizing: %w", err)
	}

	for _, asset := range result.Assets {
		if err := packer.AddImageToManifest(asset); err != nil {
			return err
		}
	}

	title := detail.Title
	if title == "" {
		title = stub.Title
	}
	if _, err := packer.AddChapter(title, result.Markup); err != nil {
		return err
	}
	return nil
}
