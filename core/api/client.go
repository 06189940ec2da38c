package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Fox6935/kemono-epub-creator/core"
)

const (
	defaultTimeout = 30 * time.Second
	// PageSize is the fixed page length of the list endpoint.
	PageSize = 50
)

// Client talks to a kemono-style content host.
type Client struct {
	http      *http.Client
	siteURL   string
	userAgent string
	limiter   *RateLimiter
}

// Options configures a Client.
type Options struct {
	SiteURL   string
	UserAgent string
	Limiter   *RateLimiter
}

// New creates a Client with a sensible timeout.
func New(opts Options) *Client {
	limiter := opts.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(0)
	}
	return &Client{
		http:      &http.Client{Timeout: defaultTimeout},
		siteURL:   opts.SiteURL,
		userAgent: opts.UserAgent,
		limiter:   limiter,
	}
}

// wirePost is the host's JSON shape for a post, shared by the list,
// search, and detail endpoints.
type wirePost struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Content     string           `json:"content"`
	Published   string           `json:"published"`
	Attachments []wireAttachment `json:"attachments"`
}

type wireAttachment struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Server string `json:"server"`
}

// publishedLayouts are the timestamp formats the host has been seen
// emitting.
var publishedLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

func parsePublished(s string) time.Time {
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// get performs one rate-limited GET and returns the body.
func (c *Client) get(ctx context.Context, url string) ([]byte, http.Header, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/css, image/*, */*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, resp.Header, nil
}

// ListPosts returns one page of post stubs. The total count comes from
// the N-Total header when present, -1 otherwise.
func (c *Client) ListPosts(ctx context.Context, service, creatorID string, offset, limit int) ([]core.PostStub, int, error) {
	url := fmt.Sprintf("%s/api/v1/%s/user/%s/posts?o=%d", c.siteURL, service, creatorID, offset)
	body, header, err := c.get(ctx, url)
	if err != nil {
		return nil, -1, err
	}

	var posts []wirePost
	if err := json.Unmarshal(body, &posts); err != nil {
		return nil, -1, fmt.Errorf("decoding post list: %w", err)
	}

	total := -1
	if v := header.Get("N-Total"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			total = n
		}
	}

	stubs := make([]core.PostStub, 0, len(posts))
	for _, p := range posts {
		if limit > 0 && len(stubs) >= limit {
			break
		}
		stubs = append(stubs, core.PostStub{
			ID:             p.ID,
			Title:          p.Title,
			PublishedAt:    parsePublished(p.Published),
			OriginalOffset: offset,
		})
	}
	return stubs, total, nil
}

// SearchPosts returns one list page filtered by a search query, with
// whatever full bodies the bulk response happens to include.
func (c *Client) SearchPosts(ctx context.Context, service, creatorID string, offset int, query string) ([]core.PostDetail, error) {
	url := fmt.Sprintf("%s/api/v1/%s/user/%s/posts?o=%d&q=%s", c.siteURL, service, creatorID, offset, query)
	body, _, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var posts []wirePost
	if err := json.Unmarshal(body, &posts); err != nil {
		return nil, fmt.Errorf("decoding search results: %w", err)
	}

	details := make([]core.PostDetail, 0, len(posts))
	for _, p := range posts {
		details = append(details, toDetail(p))
	}
	return details, nil
}

// detailResponse wraps the newer detail endpoint shape; older hosts
// return the post object directly.
type detailResponse struct {
	Post *wirePost `json:"post"`
}

// GetPostDetail fetches one post's full content. A response without an
// id is treated as not found.
func (c *Client) GetPostDetail(ctx context.Context, service, creatorID, postID string) (*core.PostDetail, error) {
	url := fmt.Sprintf("%s/api/v1/%s/user/%s/post/%s", c.siteURL, service, creatorID, postID)
	body, _, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var post *wirePost
	var wrapped detailResponse
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Post != nil {
		post = wrapped.Post
	} else {
		var direct wirePost
		if err := json.Unmarshal(body, &direct); err != nil {
			return nil, fmt.Errorf("decoding post %s: %w", postID, err)
		}
		post = &direct
	}

	if post.ID == "" {
		return nil, fmt.Errorf("post %s: malformed response (missing id)", postID)
	}
	detail := toDetail(*post)
	return &detail, nil
}

func toDetail(p wirePost) core.PostDetail {
	attachments := make([]core.Attachment, 0, len(p.Attachments))
	for _, a := range p.Attachments {
		attachments = append(attachments, core.Attachment{
			Path:   a.Path,
			Name:   a.Name,
			Server: a.Server,
		})
	}
	return core.PostDetail{
		ID:          p.ID,
		Title:       p.Title,
		ContentHTML: p.Content,
		Attachments: attachments,
	}
}

// FetchBinary retrieves a remote asset.
func (c *Client) FetchBinary(ctx context.Context, url string) ([]byte, error) {
	body, _, err := c.get(ctx, url)
	return body, err
}

// profileResponse is the creator profile endpoint shape.
type profileResponse struct {
	Name string `json:"name"`
}

// CreatorProfile resolves the creator's display name.
func (c *Client) CreatorProfile(ctx context.Context, service, creatorID string) (string, error) {
	url := fmt.Sprintf("%s/api/v1/%s/user/%s/profile", c.siteURL, service, creatorID)
	body, _, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}

	var profile profileResponse
	if err := json.Unmarshal(body, &profile); err != nil {
		return "", fmt.Errorf("decoding profile: %w", err)
	}
	return profile.Name, nil
}
