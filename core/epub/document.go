package epub

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

// packageDocument builds OEBPS/content.opf: Dublin Core metadata, the
// manifest, and the spine in reading order.
func (p *Packer) packageDocument() string {
	identifier := "urn:uuid:" + uuid.New().String()

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&sb, `<package xmlns="http://www.idpf.org/2007/opf" version="%s" unique-identifier="pub-id">`+"\n", p.versionAttr())
	sb.WriteString("  <metadata xmlns:dc=\"http://purl.org/dc/elements/1.1/\" xmlns:opf=\"http://www.idpf.org/2007/opf\">\n")
	fmt.Fprintf(&sb, "    <dc:identifier id=\"pub-id\">%s</dc:identifier>\n", identifier)
	fmt.Fprintf(&sb, "    <dc:title>%s</dc:title>\n", escapeXML(p.title))
	fmt.Fprintf(&sb, "    <dc:creator>%s</dc:creator>\n", escapeXML(p.author))
	fmt.Fprintf(&sb, "    <dc:language>%s</dc:language>\n", escapeXML(p.language))
	if p.version == Version3 {
		fmt.Fprintf(&sb, "    <meta property=\"dcterms:modified\">%s</meta>\n",
			time.Now().UTC().Format("2006-01-02T15:04:05Z"))
		if cover := p.coverImageID(); cover != "" {
			fmt.Fprintf(&sb, "    <meta name=\"cover\" content=\"%s\"/>\n", cover)
		}
	} else if cover := p.coverImageID(); cover != "" {
		fmt.Fprintf(&sb, "    <meta name=\"cover\" content=\"%s\"/>\n", cover)
	}
	sb.WriteString("  </metadata>\n")

	sb.WriteString("  <manifest>\n")
	sb.WriteString("    <item id=\"ncx\" href=\"toc.ncx\" media-type=\"application/x-dtbncx+xml\"/>\n")
	if p.version == Version3 {
		sb.WriteString("    <item id=\"nav\" href=\"toc.xhtml\" media-type=\"application/xhtml+xml\" properties=\"nav\"/>\n")
	}
	for _, item := range p.items {
		fmt.Fprintf(&sb, "    <item id=\"%s\" href=\"%s\" media-type=\"%s\"", item.id, escapeXML(item.href), item.mediaType)
		if item.properties != "" && p.version == Version3 {
			fmt.Fprintf(&sb, " properties=\"%s\"", item.properties)
		}
		sb.WriteString("/>\n")
	}
	sb.WriteString("  </manifest>\n")

	sb.WriteString("  <spine toc=\"ncx\">\n")
	for _, id := range p.spine() {
		fmt.Fprintf(&sb, "    <itemref idref=\"%s\"/>\n", id)
	}
	sb.WriteString("  </spine>\n")
	sb.WriteString("</package>\n")
	return sb.String()
}

func (p *Packer) versionAttr() string {
	if p.version == Version2 {
		return "2.0"
	}
	return "3.0"
}

// coverImageID returns the manifest id of the cover image item, if any.
func (p *Packer) coverImageID() string {
	for _, item := range p.items {
		if item.properties == "cover-image" {
			return item.id
		}
	}
	return ""
}

// navEntries is the full navigation list: the contents page (when
// present) followed by the chapters in spine order.
func (p *Packer) navEntries() []tocEntry {
	var entries []tocEntry
	if p.contentsID != "" {
		entries = append(entries, tocEntry{title: "Table of Contents", href: "Text/contents.xhtml"})
	}
	return append(entries, p.toc...)
}

// ncxDocument builds the legacy navigation map with 1-based playOrder.
func (p *Packer) ncxDocument() string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">` + "\n")
	sb.WriteString("  <head>\n")
	sb.WriteString("    <meta name=\"dtb:depth\" content=\"1\"/>\n")
	sb.WriteString("    <meta name=\"dtb:totalPageCount\" content=\"0\"/>\n")
	sb.WriteString("    <meta name=\"dtb:maxPageNumber\" content=\"0\"/>\n")
	sb.WriteString("  </head>\n")
	fmt.Fprintf(&sb, "  <docTitle><text>%s</text></docTitle>\n", escapeXML(p.title))
	sb.WriteString("  <navMap>\n")
	for i, entry := range p.navEntries() {
		fmt.Fprintf(&sb, "    <navPoint id=\"navpoint-%d\" playOrder=\"%d\">\n", i+1, i+1)
		fmt.Fprintf(&sb, "      <navLabel><text>%s</text></navLabel>\n", escapeXML(entry.title))
		fmt.Fprintf(&sb, "      <content src=\"%s\"/>\n", escapeXML(entry.href))
		sb.WriteString("    </navPoint>\n")
	}
	sb.WriteString("  </navMap>\n")
	sb.WriteString("</ncx>\n")
	return sb.String()
}

// navDocument builds the EPUB 3 navigation document mirroring the NCX
// entries.
func (p *Packer) navDocument() string {
	var sb strings.Builder
	sb.WriteString(xhtmlProlog3)
	sb.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">` + "\n")
	fmt.Fprintf(&sb, "<head><title>%s</title></head>\n<body>\n", escapeXML(p.title))
	sb.WriteString("  <nav epub:type=\"toc\" id=\"toc\">\n")
	sb.WriteString("    <h1>Table of Contents</h1>\n    <ol>\n")
	for _, entry := range p.navEntries() {
		fmt.Fprintf(&sb, "      <li><a href=\"%s\">%s</a></li>\n", escapeXML(entry.href), escapeXML(entry.title))
	}
	sb.WriteString("    </ol>\n  </nav>\n</body>\n</html>\n")
	return sb.String()
}

const xhtmlProlog3 = `<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE html>
`

const xhtmlProlog2 = `<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">
`

func (p *Packer) prolog() string {
	if p.version == Version2 {
		return xhtmlProlog2
	}
	return xhtmlProlog3
}

// chapterXHTML wraps normalized markup in the minimal chapter template
// with the shared stylesheet link.
func (p *Packer) chapterXHTML(title, safeMarkup string) string {
	var sb strings.Builder
	sb.WriteString(p.prolog())
	sb.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml">` + "\n<head>\n")
	fmt.Fprintf(&sb, "  <title>%s</title>\n", escapeXML(title))
	if p.stylesheet != "" {
		fmt.Fprintf(&sb, "  <link rel=\"stylesheet\" type=\"text/css\" href=\"../%s\"/>\n", p.stylesheet)
	}
	sb.WriteString("</head>\n<body>\n")
	fmt.Fprintf(&sb, "  <h1>%s</h1>\n", escapeXML(title))
	sb.WriteString(safeMarkup)
	sb.WriteString("\n</body>\n</html>\n")
	return sb.String()
}

// coverPageXHTML is the dedicated page wrapping the cover image.
func (p *Packer) coverPageXHTML(imageHref string) string {
	var sb strings.Builder
	sb.WriteString(p.prolog())
	sb.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml">` + "\n<head>\n")
	sb.WriteString("  <title>Cover</title>\n")
	sb.WriteString("  <style type=\"text/css\">body { margin: 0; text-align: center; } img { max-width: 100%; max-height: 100%; }</style>\n")
	sb.WriteString("</head>\n<body>\n")
	fmt.Fprintf(&sb, "  <img src=\"%s\" alt=\"Cover\"/>\n", escapeXML(imageHref))
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

// contentsPageXHTML is the human-readable contents page, one link per
// chapter. Hrefs are relative to Text/.
func (p *Packer) contentsPageXHTML() string {
	var sb strings.Builder
	sb.WriteString(p.prolog())
	sb.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml">` + "\n<head>\n")
	sb.WriteString("  <title>Table of Contents</title>\n")
	if p.stylesheet != "" {
		fmt.Fprintf(&sb, "  <link rel=\"stylesheet\" type=\"text/css\" href=\"../%s\"/>\n", p.stylesheet)
	}
	sb.WriteString("</head>\n<body>\n  <h1>Table of Contents</h1>\n  <ol>\n")
	for _, entry := range p.toc {
		href := strings.TrimPrefix(entry.href, "Text/")
		fmt.Fprintf(&sb, "    <li><a href=\"%s\">%s</a></li>\n", escapeXML(href), escapeXML(entry.title))
	}
	sb.WriteString("  </ol>\n</body>\n</html>\n")
	return sb.String()
}

// escapeXML escapes the five special XML characters.
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
