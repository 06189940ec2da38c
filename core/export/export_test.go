package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Fox6935/kemono-epub-creator/core"
)

func TestMarkdownExporter(t *testing.T) {
	r := NewMarkdownExporter()
	post := &core.PostDetail{ID: "1", Title: "My Post"}
	markup := `<p>Some <strong>bold</strong> text.</p><p>Second paragraph.</p>`

	data, err := r.Render(post, markup)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.HasPrefix(out, "# My Post\n") {
		t.Errorf("missing title heading:\n%s", out)
	}
	if !strings.Contains(out, "**bold**") {
		t.Errorf("bold not converted:\n%s", out)
	}
	if r.Extension() != ".md" {
		t.Errorf("extension = %s", r.Extension())
	}
}

func TestMarkdownExporterKeepsRemoteImageLinks(t *testing.T) {
	r := NewMarkdownExporter()
	post := &core.PostDetail{ID: "1", Title: "Post"}
	markup := `<p><img src="https://cdn.example.host/data/a.png" alt="pic"/></p>`

	data, err := r.Render(post, markup)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "https://cdn.example.host/data/a.png") {
		t.Errorf("remote image URL lost:\n%s", data)
	}
}

func TestPDFExporter(t *testing.T) {
	r := NewPDFExporter()
	post := &core.PostDetail{ID: "1", Title: "My Post"}
	markup := `<h2>Section</h2><p>Paragraph text.</p><ul><li>item one</li><li>item two</li></ul>`

	data, err := r.Render(post, markup)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("output does not look like a PDF (starts %q)", data[:8])
	}
	if r.Extension() != ".pdf" {
		t.Errorf("extension = %s", r.Extension())
	}
}

func TestStripInline(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"**bold** text", "bold text"},
		{"a [link](https://x) here", "a link here"},
		{"code `span` kept", "code span kept"},
	}
	for _, tt := range tests {
		if got := stripInline(tt.in); got != tt.want {
			t.Errorf("stripInline(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
