// Package core defines the shared data model and pipeline interfaces
// for the EPUB creator. Each stage of the pipeline is a clean,
// testable interface.
package core

import (
	"context"
	"time"
)

// PostStub is a lightweight post summary produced by the list endpoint.
// Ordering by PublishedAt is the canonical chapter order.
type PostStub struct {
	ID          string
	Title       string
	PublishedAt time.Time
	// OriginalOffset is the list-page offset the stub was found at,
	// used as a pagination hint by the bulk-prefetch pass.
	OriginalOffset int
}

// Attachment is a file reference carried by a post.
type Attachment struct {
	Path   string
	Name   string
	Server string
}

// PostDetail is the fully fetched content of one post.
type PostDetail struct {
	ID          string
	Title       string
	ContentHTML string
	Attachments []Attachment
}

// CreatorInfo identifies a creator on the content host.
// DisplayName may be empty; the orchestrator resolves a fallback.
type CreatorInfo struct {
	Service     string
	CreatorID   string
	DisplayName string
}

// AssetDescriptor is one packaged binary asset. Ownership transfers to
// the archive packer once registered in the manifest.
type AssetDescriptor struct {
	OriginalURL string
	ArchivePath string
	MediaType   string
	Payload     []byte
}

// ProgressMessageOnly is the percent value meaning "message only,
// percentage unchanged".
const ProgressMessageOnly = -1

// Progress receives generation status. Percent is 0..100 and
// monotonically non-decreasing, or ProgressMessageOnly.
type Progress func(percent float64, message string)

// Client is the contract of the content-hosting API.
type Client interface {
	// ListPosts returns one page of post stubs plus the total count,
	// or -1 when the host does not report a total.
	ListPosts(ctx context.Context, service, creatorID string, offset, limit int) ([]PostStub, int, error)
	// SearchPosts returns one list page including any full post bodies
	// that ride along in the bulk response. Used by the prefetch pass.
	SearchPosts(ctx context.Context, service, creatorID string, offset int, query string) ([]PostDetail, error)
	GetPostDetail(ctx context.Context, service, creatorID, postID string) (*PostDetail, error)
	FetchBinary(ctx context.Context, url string) ([]byte, error)
	// CreatorProfile resolves the creator's display name.
	CreatorProfile(ctx context.Context, service, creatorID string) (string, error)
}

// BinaryFetcher retrieves a remote asset. The normalizer depends on
// this narrow view of Client.
type BinaryFetcher interface {
	FetchBinary(ctx context.Context, url string) ([]byte, error)
}

// Exporter renders one normalized post into a standalone output format
// (Markdown, PDF) for the export command.
type Exporter interface {
	Render(post *PostDetail, markup string) ([]byte, error)
	// Extension returns the file extension for this exporter (e.g. ".md", ".pdf").
	Extension() string
}
