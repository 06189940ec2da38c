// Package normalize converts one post's scraped HTML plus its media
// references into packageable, self-contained XHTML. It resolves and
// fetches every referenced asset, rewrites references to in-archive
// paths, and recovers locally from any malformed fragment or failed
// asset so a single bad image never aborts a generation run.
package normalize

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/Fox6935/kemono-epub-creator/core"
	"github.com/Fox6935/kemono-epub-creator/core/encode"
	"github.com/Fox6935/kemono-epub-creator/core/epub"
)

// noiseSelectors are elements stripped from post content outright:
// scripts, embedded frames, form controls, and ad/tracking containers.
var noiseSelectors = []string{
	"script", "style", "noscript", "iframe",
	"form", "button", "input", "select", "textarea",
	".ads", ".advertisement", ".ad-container", ".sharing", ".post__footer",
}

const unavailableNote = "(image not available)"

// Options configures a Normalizer.
type Options struct {
	SiteBaseURL string
	DataBaseURL string
	// DedupIgnoreQuery drops query strings before deduplication,
	// merging cache-busted variants of the same asset. Default-on to
	// match the host's CDN behavior.
	DedupIgnoreQuery bool
	// IncludeAttachments appends image attachments to the markup.
	IncludeAttachments bool
	// LinkOnly resolves asset references to absolute URLs and leaves
	// them remote: nothing is fetched and no descriptors are produced.
	// For output formats that live outside an archive.
	LinkOnly bool
}

// Result is the output of one Normalize call.
type Result struct {
	// Markup is well-formed XHTML ready for the chapter template.
	Markup string
	// Assets are the descriptors referenced by Markup, first
	// occurrence only; ownership passes to the archive packer.
	Assets []core.AssetDescriptor
}

// Normalizer rewrites post markup. One instance serves one generation
// run: its dedup table spans every post in the run, so an asset URL
// shared between chapters is fetched and packaged exactly once.
type Normalizer struct {
	fetcher core.BinaryFetcher
	encoder *encode.Encoder
	opts    Options

	seen  map[string]*core.AssetDescriptor // dedup key -> descriptor
	names *epub.UniqueNames                // archive basenames, unique across the run
}

// New creates a Normalizer. The fetcher is expected to be
// rate-limited by its owner.
func New(fetcher core.BinaryFetcher, encoder *encode.Encoder, opts Options) *Normalizer {
	if opts.DataBaseURL == "" {
		opts.DataBaseURL = opts.SiteBaseURL
	}
	return &Normalizer{
		fetcher: fetcher,
		encoder: encoder,
		opts:    opts,
		seen:    make(map[string]*core.AssetDescriptor),
		names:   epub.NewUniqueNames(),
	}
}

// Normalize converts rawHTML and the post's attachments into XHTML
// plus the assets it references. Malformed fragments and dead images
// degrade locally; the call itself does not fail for them.
func (n *Normalizer) Normalize(ctx context.Context, postID, rawHTML string, attachments []core.Attachment) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		// Recover by keeping the text as escaped plain content.
		return &Result{Markup: "<p>" + escapeText(rawHTML) + "</p>"}, nil
	}

	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	result := &Result{}
	assetCount := 0

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		resolved := n.resolveAssetURL(src)
		if resolved == "" {
			// Already-local or unresolvable reference; leave it be so
			// normalization stays idempotent.
			return
		}

		if n.opts.LinkOnly {
			s.SetAttr("src", resolved)
			return
		}

		asset, fresh, err := n.assetFor(ctx, postID, resolved, &assetCount)
		if err != nil {
			alt, _ := s.Attr("alt")
			replaceWithUnavailable(s, alt)
			return
		}
		if fresh {
			result.Assets = append(result.Assets, *asset)
		}
		s.SetAttr("src", "../"+asset.ArchivePath)
	})

	// Absolute-ize plain links so they still work outside the host.
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if resolved := n.resolveAssetURL(href); resolved != "" {
			s.SetAttr("href", resolved)
		}
	})

	if n.opts.IncludeAttachments {
		n.appendAttachments(ctx, doc, postID, attachments, &assetCount, result)
	}

	result.Markup = serializeBody(doc)
	return result, nil
}

// assetFor returns the descriptor for a resolved URL, fetching and
// encoding it on first sight. fresh is true when this call created the
// descriptor.
func (n *Normalizer) assetFor(ctx context.Context, postID, resolved string, assetCount *int) (*core.AssetDescriptor, bool, error) {
	key := n.dedupKey(resolved)
	if asset, ok := n.seen[key]; ok {
		if asset == nil {
			return nil, false, fmt.Errorf("asset %s previously failed", resolved)
		}
		return asset, false, nil
	}

	raw, err := n.fetcher.FetchBinary(ctx, resolved)
	if err != nil {
		n.seen[key] = nil // remember the failure, don't refetch
		return nil, false, fmt.Errorf("fetching %s: %w", resolved, err)
	}

	payload, mediaType, ext, err := n.encoder.Encode(raw, resolved)
	if err != nil {
		n.seen[key] = nil
		return nil, false, err
	}

	*assetCount++
	base := epub.SanitizeBasename(postID)
	if base == "" {
		base = "post"
	}
	// Post ids can sanitize to the same token, so the basename is
	// claimed through the run-wide allocator.
	name := n.names.Claim(fmt.Sprintf("%s_%d", base, *assetCount))
	asset := &core.AssetDescriptor{
		OriginalURL: resolved,
		ArchivePath: "Images/" + name + ext,
		MediaType:   mediaType,
		Payload:     payload,
	}
	n.seen[key] = asset
	return asset, true, nil
}

// appendAttachments adds the post's image attachments to the end of
// the markup; non-image attachments become a plain note.
func (n *Normalizer) appendAttachments(ctx context.Context, doc *goquery.Document, postID string, attachments []core.Attachment, assetCount *int, result *Result) {
	body := doc.Find("body")
	for _, att := range attachments {
		resolved := n.resolveAttachmentURL(att.Path, att.Server)
		if resolved == "" {
			continue
		}

		if n.opts.LinkOnly {
			body.AppendHtml(fmt.Sprintf(`<p><img src="%s" alt="%s"/></p>`, escapeAttr(resolved), escapeAttr(att.Name)))
			continue
		}

		asset, fresh, err := n.assetFor(ctx, postID, resolved, assetCount)
		if err != nil {
			body.AppendHtml(fmt.Sprintf("<p>%s %s</p>", escapeText(att.Name), unavailableNote))
			continue
		}
		if fresh {
			result.Assets = append(result.Assets, *asset)
		}
		body.AppendHtml(fmt.Sprintf(`<p><img src="../%s" alt="%s"/></p>`, asset.ArchivePath, escapeAttr(att.Name)))
	}
}

// replaceWithUnavailable swaps a dead image for an annotated text
// fallback carrying its alt text.
func replaceWithUnavailable(s *goquery.Selection, alt string) {
	label := strings.TrimSpace(alt + " " + unavailableNote)
	s.ReplaceWithHtml("<em>" + escapeText(label) + "</em>")
}

// serializeBody renders the document's body children as XHTML.
func serializeBody(doc *goquery.Document) string {
	body := doc.Find("body")
	if len(body.Nodes) == 0 {
		return ""
	}

	var buf bytes.Buffer
	for c := body.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		renderXHTML(&buf, c)
	}
	return buf.String()
}

// sanitizeFragment runs a bare HTML fragment through the XHTML
// rendering pass without touching assets. Sanitizing already-sanitized
// markup is a no-op.
func sanitizeFragment(fragment string) string {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return escapeText(fragment)
	}
	var buf bytes.Buffer
	for _, node := range nodes {
		renderXHTML(&buf, node)
	}
	return buf.String()
}
