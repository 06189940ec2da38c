// Package output handles file naming and writing for the produced
// artifacts: the EPUB blob and per-post export files.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxFilenameLen caps produced filenames; longer names are truncated
// before the extension.
const maxFilenameLen = 120

// Writer saves produced artifacts to disk. It is the download sink:
// saving is fire-and-forget from the pipeline's point of view.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory.
// If outputDir is empty, it defaults to the current working directory.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Writer{OutputDir: outputDir}, nil
}

// Save writes one artifact under a sanitized filename and returns the
// full path.
func (w *Writer) Save(blob []byte, filename string) (string, error) {
	path := filepath.Join(w.OutputDir, SanitizeFilename(filename))
	if err := os.WriteFile(path, blob, 0644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	return path, nil
}

// SavePost writes one exported post, deriving the filename from its
// title and the exporter's extension.
func (w *Writer) SavePost(data []byte, title, postID, ext string) (string, error) {
	name := strings.Trim(strings.TrimSuffix(title, ext), " .")
	if name == "" {
		name = "post_" + postID
	}
	return w.Save(data, name+ext)
}

// SanitizeFilename strips path-unsafe characters, collapses
// whitespace, and caps the length. The result is never empty.
func SanitizeFilename(name string) string {
	var b strings.Builder
	lastSpace := true
	for _, ch := range name {
		switch {
		case ch == '/' || ch == '\\' || ch == ':' || ch == '*' || ch == '?' ||
			ch == '"' || ch == '<' || ch == '>' || ch == '|' || ch < 0x20:
			// dropped
		case ch == ' ' || ch == '\t':
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		default:
			b.WriteRune(ch)
			lastSpace = false
		}
	}

	out := strings.Trim(b.String(), " .")
	if out == "" {
		return "archive"
	}

	runes := []rune(out)
	if len(runes) > maxFilenameLen {
		ext := filepath.Ext(out)
		keep := maxFilenameLen - len([]rune(ext))
		if keep < 1 {
			keep = 1
		}
		out = string(runes[:keep]) + ext
	}
	return out
}
