package normalize

import (
	"net/url"
	"strings"
)

// resolveAssetURL turns a scraped reference into an absolute URL using
// the host's base-URL rules: protocol-relative references take the
// site scheme, /data/ paths resolve against the data (CDN) base, other
// root-relative paths resolve against the site base, and absolute
// http(s) URLs pass through. Anything else (already-local relative
// paths, data: URIs, unknown schemes) resolves to "" and is left
// untouched by the caller.
func (n *Normalizer) resolveAssetURL(ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, "//"):
		return n.siteScheme() + ":" + ref
	case strings.HasPrefix(ref, "/data/"):
		return strings.TrimSuffix(n.opts.DataBaseURL, "/") + ref
	case strings.HasPrefix(ref, "/"):
		return strings.TrimSuffix(n.opts.SiteBaseURL, "/") + ref
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ref
	default:
		return ""
	}
}

// resolveAttachmentURL resolves an attachment's path, preferring the
// server the host assigned it to.
func (n *Normalizer) resolveAttachmentURL(path, server string) string {
	if path == "" {
		return ""
	}
	base := server
	if base == "" {
		base = n.opts.DataBaseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if !strings.HasPrefix(path, "/data/") {
		path = "/data" + path
	}
	return strings.TrimSuffix(base, "/") + path
}

// dedupKey canonicalizes a resolved URL for deduplication: the
// fragment is always dropped, and the query is dropped unless the
// normalizer was told to keep query variants distinct.
func (n *Normalizer) dedupKey(resolved string) string {
	u, err := url.Parse(resolved)
	if err != nil {
		return resolved
	}
	u.Fragment = ""
	if n.opts.DedupIgnoreQuery {
		u.RawQuery = ""
	}
	return u.String()
}

func (n *Normalizer) siteScheme() string {
	if strings.HasPrefix(n.opts.SiteBaseURL, "http://") {
		return "http"
	}
	return "https"
}
