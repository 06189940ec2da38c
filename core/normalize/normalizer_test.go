package normalize

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/Fox6935/kemono-epub-creator/core"
	"github.com/Fox6935/kemono-epub-creator/core/encode"
)

// fakeFetcher serves canned bytes and counts fetches per URL.
type fakeFetcher struct {
	payloads map[string][]byte
	fetches  map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{payloads: make(map[string][]byte), fetches: make(map[string]int)}
}

func (f *fakeFetcher) FetchBinary(_ context.Context, url string) ([]byte, error) {
	f.fetches[url]++
	data, ok := f.payloads[url]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return data, nil
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestNormalizer(f *fakeFetcher) *Normalizer {
	return New(f, encode.New(false), Options{
		SiteBaseURL:      "https://example.host",
		DataBaseURL:      "https://cdn.example.host",
		DedupIgnoreQuery: true,
	})
}

func TestNormalizeRewritesAndDedupesSharedURL(t *testing.T) {
	f := newFakeFetcher()
	f.payloads["https://cdn.example.host/data/a.png"] = testPNG(t)
	n := newTestNormalizer(f)

	raw := `<p>one <img src="/data/a.png" alt="pic"/></p><p>two <img src="/data/a.png?v=2"/></p>`
	result, err := n.Normalize(context.Background(), "101", raw, nil)
	if err != nil {
		t.Fatal(err)
	}

	if got := f.fetches["https://cdn.example.host/data/a.png"]; got != 1 {
		t.Errorf("shared URL fetched %d times, want 1", got)
	}
	if len(result.Assets) != 1 {
		t.Fatalf("got %d assets, want 1", len(result.Assets))
	}
	asset := result.Assets[0]
	if asset.MediaType != "image/png" {
		t.Errorf("asset media type = %s", asset.MediaType)
	}
	if got := strings.Count(result.Markup, `src="../`+asset.ArchivePath+`"`); got != 2 {
		t.Errorf("archive path referenced %d times in markup, want 2:\n%s", got, result.Markup)
	}
}

func TestNormalizeKeepsQueryVariantsWhenConfigured(t *testing.T) {
	f := newFakeFetcher()
	f.payloads["https://cdn.example.host/data/a.png"] = testPNG(t)
	f.payloads["https://cdn.example.host/data/a.png?v=2"] = testPNG(t)
	n := New(f, encode.New(false), Options{
		SiteBaseURL: "https://example.host",
		DataBaseURL: "https://cdn.example.host",
	})

	raw := `<img src="/data/a.png"/><img src="/data/a.png?v=2"/>`
	result, err := n.Normalize(context.Background(), "101", raw, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Assets) != 2 {
		t.Fatalf("got %d assets, want 2 distinct query variants", len(result.Assets))
	}
}

func TestNormalizeGracefulAssetFailure(t *testing.T) {
	f := newFakeFetcher() // knows no URLs: every fetch fails
	n := newTestNormalizer(f)

	raw := `<p>before <img src="/data/gone.png" alt="missing pic"/> after</p>`
	result, err := n.Normalize(context.Background(), "101", raw, nil)
	if err != nil {
		t.Fatalf("normalize must not fail for a dead asset: %v", err)
	}
	if len(result.Assets) != 0 {
		t.Errorf("got %d assets for a failed fetch, want 0", len(result.Assets))
	}
	if !strings.Contains(result.Markup, "missing pic") || !strings.Contains(result.Markup, "image not available") {
		t.Errorf("fallback annotation missing from markup:\n%s", result.Markup)
	}
	if strings.Contains(result.Markup, "<img") {
		t.Errorf("dead image reference not replaced:\n%s", result.Markup)
	}
}

func TestNormalizeStripsNoiseElements(t *testing.T) {
	n := newTestNormalizer(newFakeFetcher())
	raw := `<p>keep</p><script>evil()</script><div class="ads">buy</div><iframe src="x"></iframe>`
	result, err := n.Normalize(context.Background(), "101", raw, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, banned := range []string{"script", "evil", "iframe", "buy"} {
		if strings.Contains(result.Markup, banned) {
			t.Errorf("markup still contains %q:\n%s", banned, result.Markup)
		}
	}
	if !strings.Contains(result.Markup, "<p>keep</p>") {
		t.Errorf("content lost:\n%s", result.Markup)
	}
}

func TestNormalizeProducesSelfClosingVoids(t *testing.T) {
	n := newTestNormalizer(newFakeFetcher())
	result, err := n.Normalize(context.Background(), "101", `<p>a<br>b</p><hr>`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Markup, "<br/>") {
		t.Errorf("br not self-closed:\n%s", result.Markup)
	}
	if !strings.Contains(result.Markup, "<hr/>") {
		t.Errorf("hr not self-closed:\n%s", result.Markup)
	}
}

func TestNormalizeNumericEntities(t *testing.T) {
	n := newTestNormalizer(newFakeFetcher())
	result, err := n.Normalize(context.Background(), "101", `<p>a&nbsp;b &amp; c</p>`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Markup, "a&#160;b") {
		t.Errorf("nbsp not converted to numeric reference:\n%s", result.Markup)
	}
	if !strings.Contains(result.Markup, "&amp;") {
		t.Errorf("ampersand not escaped:\n%s", result.Markup)
	}
}

func TestFragmentSanitizationIsIdempotent(t *testing.T) {
	inputs := []string{
		`<p>a&nbsp;b &amp; c <br> d</p>`,
		`<div><p>nested <em>text</em></p><hr></div>`,
		`plain text with <b>tags</b> &lt;escaped&gt;`,
	}
	for _, in := range inputs {
		once := sanitizeFragment(in)
		twice := sanitizeFragment(once)
		if once != twice {
			t.Errorf("sanitization not idempotent for %q:\nonce:  %s\ntwice: %s", in, once, twice)
		}
	}
}

func TestResolveAssetURL(t *testing.T) {
	n := newTestNormalizer(newFakeFetcher())
	tests := []struct {
		in   string
		want string
	}{
		{"//static.example.host/x.png", "https://static.example.host/x.png"},
		{"/data/ab/cd.png", "https://cdn.example.host/data/ab/cd.png"},
		{"/thumbnails/x.png", "https://example.host/thumbnails/x.png"},
		{"https://other.site/y.jpg", "https://other.site/y.jpg"},
		{"../Images/101_1.png", ""},
		{"data:image/png;base64,AAAA", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := n.resolveAssetURL(tt.in); got != tt.want {
			t.Errorf("resolveAssetURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCollidingPostIDsGetDistinctAssetPaths(t *testing.T) {
	f := newFakeFetcher()
	f.payloads["https://cdn.example.host/data/red.png"] = testPNG(t)
	f.payloads["https://cdn.example.host/data/blue.png"] = testPNG(t)
	n := newTestNormalizer(f)

	// Both ids sanitize to "a_b"; the images must still land on
	// different archive paths.
	first, err := n.Normalize(context.Background(), "a!b", `<img src="/data/red.png"/>`, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := n.Normalize(context.Background(), "a?b", `<img src="/data/blue.png"/>`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Assets) != 1 || len(second.Assets) != 1 {
		t.Fatalf("asset counts = %d/%d, want 1/1", len(first.Assets), len(second.Assets))
	}
	if first.Assets[0].ArchivePath == second.Assets[0].ArchivePath {
		t.Fatalf("both posts assigned %q", first.Assets[0].ArchivePath)
	}
	if !strings.Contains(second.Markup, `src="../`+second.Assets[0].ArchivePath+`"`) {
		t.Errorf("second post does not reference its own asset:\n%s", second.Markup)
	}
}

func TestEmptySanitizedPostIDStillGetsAssetPath(t *testing.T) {
	f := newFakeFetcher()
	f.payloads["https://cdn.example.host/data/a.png"] = testPNG(t)
	n := newTestNormalizer(f)

	result, err := n.Normalize(context.Background(), "!!!", `<img src="/data/a.png"/>`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Assets) != 1 {
		t.Fatalf("got %d assets, want 1", len(result.Assets))
	}
	if got := result.Assets[0].ArchivePath; got != "Images/post_1.png" {
		t.Errorf("archive path = %q, want Images/post_1.png", got)
	}
}

func TestNormalizeLinkOnlyResolvesWithoutFetching(t *testing.T) {
	f := newFakeFetcher() // knows no URLs: any fetch would fail
	n := New(f, encode.New(false), Options{
		SiteBaseURL:        "https://example.host",
		DataBaseURL:        "https://cdn.example.host",
		IncludeAttachments: true,
		LinkOnly:           true,
	})

	attachments := []core.Attachment{{Path: "/att/img.png", Name: "img.png", Server: "https://files.example.host"}}
	result, err := n.Normalize(context.Background(), "101", `<p><img src="/data/a.png" alt="pic"/></p>`, attachments)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.fetches) != 0 {
		t.Errorf("link-only mode fetched %v", f.fetches)
	}
	if len(result.Assets) != 0 {
		t.Errorf("got %d assets, want 0", len(result.Assets))
	}
	if !strings.Contains(result.Markup, `src="https://cdn.example.host/data/a.png"`) {
		t.Errorf("inline image not resolved to an absolute URL:\n%s", result.Markup)
	}
	if !strings.Contains(result.Markup, `src="https://files.example.host/data/att/img.png"`) {
		t.Errorf("attachment not appended as a remote link:\n%s", result.Markup)
	}
}

func TestNormalizeIdempotentOnOwnOutput(t *testing.T) {
	f := newFakeFetcher()
	f.payloads["https://cdn.example.host/data/a.png"] = testPNG(t)
	n := newTestNormalizer(f)

	raw := `<p>body <img src="/data/a.png" alt="pic"/></p>`
	first, err := n.Normalize(context.Background(), "101", raw, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := n.Normalize(context.Background(), "101", first.Markup, nil)
	if err != nil {
		t.Fatal(err)
	}
	if second.Markup != first.Markup {
		t.Errorf("second pass changed markup:\nfirst:  %s\nsecond: %s", first.Markup, second.Markup)
	}
	if len(second.Assets) != 0 {
		t.Errorf("second pass produced %d assets, want 0", len(second.Assets))
	}
}

func TestNormalizeAttachments(t *testing.T) {
	f := newFakeFetcher()
	f.payloads["https://files.example.host/data/att/img.png"] = testPNG(t)
	n := New(f, encode.New(false), Options{
		SiteBaseURL:        "https://example.host",
		DataBaseURL:        "https://cdn.example.host",
		DedupIgnoreQuery:   true,
		IncludeAttachments: true,
	})

	attachments := []core.Attachment{
		{Path: "/att/img.png", Name: "img.png", Server: "https://files.example.host"},
		{Path: "/att/gone.png", Name: "gone.png", Server: "https://files.example.host"},
	}
	result, err := n.Normalize(context.Background(), "101", "<p>text</p>", attachments)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Assets) != 1 {
		t.Fatalf("got %d assets, want 1", len(result.Assets))
	}
	if !strings.Contains(result.Markup, `src="../`+result.Assets[0].ArchivePath+`"`) {
		t.Errorf("attachment image not appended:\n%s", result.Markup)
	}
	if !strings.Contains(result.Markup, "gone.png (image not available)") {
		t.Errorf("failed attachment note missing:\n%s", result.Markup)
	}
}
