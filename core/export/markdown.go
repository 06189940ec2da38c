// Package export provides per-post output renderers for the export
// command. Markdown is the canonical intermediate: the PDF exporter
// renders from it too.
package export

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/Fox6935/kemono-epub-creator/core"
)

// MarkdownExporter converts normalized post markup to Markdown.
type MarkdownExporter struct{}

// NewMarkdownExporter creates a MarkdownExporter.
func NewMarkdownExporter() *MarkdownExporter {
	return &MarkdownExporter{}
}

// Render converts the post's markup into a Markdown document headed by
// the post title.
func (r *MarkdownExporter) Render(post *core.PostDetail, markup string) ([]byte, error) {
	markdown, err := htmltomarkdown.ConvertString(markup)
	if err != nil {
		return nil, fmt.Errorf("converting HTML to markdown: %w", err)
	}

	var sb strings.Builder
	if post.Title != "" {
		fmt.Fprintf(&sb, "# %s\n\n", post.Title)
	}
	sb.WriteString(strings.TrimSpace(markdown))
	sb.WriteString("\n")
	return []byte(sb.String()), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownExporter) Extension() string {
	return ".md"
}
