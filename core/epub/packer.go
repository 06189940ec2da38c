// Package epub accumulates manifest, spine, and table-of-contents
// state for one book and serializes a conformant EPUB container.
//
// A Packer is single-use: add operations are only legal while it is
// accumulating, and PackToBlob seals it for good.
package epub

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/Fox6935/kemono-epub-creator/core"
	"github.com/Fox6935/kemono-epub-creator/core/encode"
)

// ErrSealed is returned when a Packer is used after PackToBlob. It
// indicates an integration bug, not a runtime condition.
var ErrSealed = errors.New("epub: packer is sealed")

// Version selects the package format.
const (
	Version2 = 2
	Version3 = 3
)

// Options configures a Packer.
type Options struct {
	// Version is the EPUB package version, 2 or 3. Defaults to 3.
	Version int
	// Language is the dc:language value. Defaults to "en".
	Language string
}

type manifestItem struct {
	id         string
	href       string
	mediaType  string
	properties string
}

type tocEntry struct {
	title string
	href  string
}

// Packer owns the growing archive state. Not safe for concurrent use;
// one generation run is the sole owner.
type Packer struct {
	title    string
	author   string
	language string
	version  int

	items []manifestItem
	paths map[string]bool // lowercased archive paths already registered
	names *UniqueNames    // chapter basenames
	ids   *UniqueNames    // manifest ids

	coverID    string
	contentsID string
	chapters   []string // chapter manifest ids, spine order
	toc        []tocEntry

	files      map[string][]byte // OEBPS-relative path -> payload
	fileOrder  []string
	stylesheet string // archive path, "" until AddStylesheet
	encoder    *encode.Encoder

	chapterSeq int
	sealed     bool
}

// New creates an accumulating Packer for a book with the given title
// and author.
func New(title, author string, opts Options) *Packer {
	version := opts.Version
	if version != Version2 {
		version = Version3
	}
	language := opts.Language
	if language == "" {
		language = "en"
	}
	return &Packer{
		title:    title,
		author:   author,
		language: language,
		version:  version,
		paths:    make(map[string]bool),
		names:    NewUniqueNames(),
		ids:      NewUniqueNames(),
		files:    make(map[string][]byte),
		encoder:  encode.New(false),
	}
}

// addFile stores a payload and registers its manifest item. The caller
// guarantees id and path uniqueness.
func (p *Packer) addFile(id, path, mediaType, properties string, payload []byte) {
	p.items = append(p.items, manifestItem{id: id, href: path, mediaType: mediaType, properties: properties})
	p.paths[strings.ToLower(path)] = true
	p.files[path] = payload
	p.fileOrder = append(p.fileOrder, path)
}

// AddStylesheet registers the shared stylesheet. Called once, early.
func (p *Packer) AddStylesheet(cssText string) error {
	if p.sealed {
		return ErrSealed
	}
	path := "Styles/stylesheet.css"
	if p.stylesheet != "" {
		return fmt.Errorf("epub: stylesheet already added")
	}
	p.stylesheet = path
	p.addFile(p.ids.Claim("css"), path, "text/css", "", []byte(cssText))
	return nil
}

// AddCoverImage encodes the image, registers it with the cover-image
// property plus a dedicated cover page, and pins the cover to spine
// position 0 regardless of call order.
func (p *Packer) AddCoverImage(raw []byte, sourceName string) error {
	if p.sealed {
		return ErrSealed
	}
	if p.coverID != "" {
		return fmt.Errorf("epub: cover already added")
	}

	payload, mediaType, ext, err := p.encoder.Encode(raw, sourceName)
	if err != nil {
		return err
	}

	imageID := p.ids.Claim("cover-image")
	p.addFile(imageID, "Images/cover"+ext, mediaType, "cover-image", payload)

	pageID := p.ids.Claim("cover")
	page := p.coverPageXHTML("../Images/cover" + ext)
	p.addFile(pageID, "Text/cover.xhtml", "application/xhtml+xml", "", []byte(page))
	p.coverID = pageID
	return nil
}

// AddChapter wraps safeMarkup in the chapter template and appends it
// to the spine and table of contents. Returns the chapter's archive
// path (relative to the package root).
func (p *Packer) AddChapter(title, safeMarkup string) (string, error) {
	if p.sealed {
		return "", ErrSealed
	}

	p.chapterSeq++
	base := SanitizeBasename(title)
	if base == "" {
		base = fmt.Sprintf("chapter_%d", p.chapterSeq)
	}
	base = p.names.Claim(base)

	id := p.ids.Claim(manifestID(base))
	path := "Text/" + base + ".xhtml"
	p.addFile(id, path, "application/xhtml+xml", "", []byte(p.chapterXHTML(title, safeMarkup)))
	p.chapters = append(p.chapters, id)
	p.toc = append(p.toc, tocEntry{title: title, href: path})
	return path, nil
}

// AddImageToManifest registers a previously encoded asset under its
// assigned archive path. An already-registered path is skipped, since
// the same physical asset may be referenced by multiple chapters.
func (p *Packer) AddImageToManifest(asset core.AssetDescriptor) error {
	if p.sealed {
		return ErrSealed
	}
	if p.paths[strings.ToLower(asset.ArchivePath)] {
		return nil
	}

	base := strings.TrimSuffix(pathBase(asset.ArchivePath), pathExt(asset.ArchivePath))
	id := p.ids.Claim(manifestID("img_" + SanitizeBasename(base)))
	p.addFile(id, asset.ArchivePath, asset.MediaType, "", asset.Payload)
	return nil
}

// AddTableOfContentsPage emits a human-readable contents page, but
// only when the book has more than one chapter. It lands in the spine
// right after the cover.
func (p *Packer) AddTableOfContentsPage() error {
	if p.sealed {
		return ErrSealed
	}
	if len(p.chapters) <= 1 || p.contentsID != "" {
		return nil
	}

	id := p.ids.Claim("contents")
	p.addFile(id, "Text/contents.xhtml", "application/xhtml+xml", "", []byte(p.contentsPageXHTML()))
	p.contentsID = id
	return nil
}

// ChapterCount returns the number of chapters added so far.
func (p *Packer) ChapterCount() int {
	return len(p.chapters)
}

// spine returns the manifest ids in reading order:
// [cover?, contents?, chapter_1 .. chapter_n].
func (p *Packer) spine() []string {
	var order []string
	if p.coverID != "" {
		order = append(order, p.coverID)
	}
	if p.contentsID != "" {
		order = append(order, p.contentsID)
	}
	return append(order, p.chapters...)
}

// PackToBlob serializes the package document, the navigation
// documents, and every registered payload into the final compressed
// archive. It seals the Packer; it is not idempotent.
func (p *Packer) PackToBlob() ([]byte, error) {
	if p.sealed {
		return nil, ErrSealed
	}
	p.sealed = true

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	// mimetype must be the first entry and stored uncompressed.
	mime, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return nil, fmt.Errorf("creating mimetype entry: %w", err)
	}
	if _, err := mime.Write([]byte("application/epub+zip")); err != nil {
		return nil, fmt.Errorf("writing mimetype: %w", err)
	}

	entries := []struct {
		name string
		data []byte
	}{
		{"META-INF/container.xml", []byte(containerXML)},
		{"OEBPS/content.opf", []byte(p.packageDocument())},
		{"OEBPS/toc.ncx", []byte(p.ncxDocument())},
	}
	if p.version == Version3 {
		entries = append(entries, struct {
			name string
			data []byte
		}{"OEBPS/toc.xhtml", []byte(p.navDocument())})
	}
	for _, path := range p.fileOrder {
		entries = append(entries, struct {
			name string
			data []byte
		}{"OEBPS/" + path, p.files[path]})
	}

	for _, entry := range entries {
		w, err := zw.Create(entry.name)
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", entry.name, err)
		}
		if _, err := w.Write(entry.data); err != nil {
			return nil, fmt.Errorf("writing %s: %w", entry.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing archive: %w", err)
	}
	p.files = nil
	return buf.Bytes(), nil
}

func pathBase(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

func pathExt(p string) string {
	base := pathBase(p)
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		return base[i:]
	}
	return ""
}
