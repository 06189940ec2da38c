// Package encode normalizes fetched image bytes into archive-safe
// formats. PNG, JPEG, GIF, and SVG pass through unchanged; everything
// else is decoded and re-encoded as lossless PNG so any EPUB reader
// can render it without format-specific support.
package encode

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"path"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// EncodingError reports source bytes that could not be decoded as an
// image. Callers treat it as a per-asset failure, never fatal.
type EncodingError struct {
	Source string
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding %s: %v", e.Source, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// passthroughTypes are the archive-safe media types kept unchanged.
var passthroughTypes = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/svg+xml": ".svg",
}

// extensionTypes maps known file extensions to media types, used as a
// fallback when content sniffing is inconclusive.
var extensionTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// Encoder converts raw image bytes into a packageable payload.
type Encoder struct {
	// ForcePNG re-encodes every raster source to PNG, including the
	// otherwise archive-safe formats. SVG always passes through.
	ForcePNG bool
}

// New creates an Encoder.
func New(forcePNG bool) *Encoder {
	return &Encoder{ForcePNG: forcePNG}
}

// Encode returns the packaged bytes, their media type, and the file
// extension for the given source. sourceName (a URL or filename) is
// used for extension fallback and error reporting.
func (e *Encoder) Encode(raw []byte, sourceName string) ([]byte, string, string, error) {
	mediaType := sniffMediaType(raw, sourceName)

	if mediaType == "image/svg+xml" {
		return raw, mediaType, ".svg", nil
	}

	if ext, ok := passthroughTypes[mediaType]; ok && !e.ForcePNG {
		return raw, mediaType, ext, nil
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", "", &EncodingError{Source: sourceName, Err: err}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", "", &EncodingError{Source: sourceName, Err: err}
	}
	return buf.Bytes(), "image/png", ".png", nil
}

// sniffMediaType determines the media type from magic bytes, falling
// back to the source name's extension.
func sniffMediaType(raw []byte, sourceName string) string {
	if looksLikeSVG(raw) {
		return "image/svg+xml"
	}

	sniffed := http.DetectContentType(raw)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}

	ext := strings.ToLower(path.Ext(stripQuery(sourceName)))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	return sniffed
}

// looksLikeSVG detects an SVG document textually; SVG never goes
// through image.Decode.
func looksLikeSVG(raw []byte) bool {
	head := raw
	if len(head) > 512 {
		head = head[:512]
	}
	trimmed := bytes.TrimLeft(head, " \t\r\n\xef\xbb\xbf")
	return bytes.HasPrefix(trimmed, []byte("<svg")) ||
		(bytes.HasPrefix(trimmed, []byte("<?xml")) && bytes.Contains(head, []byte("<svg")))
}

func stripQuery(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		return name[:i]
	}
	return name
}
