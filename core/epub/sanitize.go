package epub

import (
	"fmt"
	"strings"
)

// maxBasenameLen caps sanitized basenames so archive paths stay short
// enough for picky readers.
const maxBasenameLen = 48

// SanitizeBasename reduces a title to an archive-safe ASCII token:
// letters, digits, hyphens and underscores, with runs of anything else
// collapsed to a single underscore. Returns "" when nothing survives;
// callers fall back to a counter-based name.
func SanitizeBasename(title string) string {
	var b strings.Builder
	lastUnderscore := true // swallow leading separators
	for _, ch := range title {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '-':
			b.WriteRune(ch)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
		if b.Len() >= maxBasenameLen {
			break
		}
	}
	return strings.Trim(b.String(), "_")
}

// UniqueNames allocates case-insensitively unique tokens by appending
// a numeric suffix to colliding bases. Used for both manifest ids and
// archive basenames.
type UniqueNames struct {
	taken map[string]bool
}

// NewUniqueNames creates an empty allocator.
func NewUniqueNames() *UniqueNames {
	return &UniqueNames{taken: make(map[string]bool)}
}

// Claim returns base unchanged if it is free, otherwise the first
// base_N (N >= 2) that is. The returned name is marked as taken.
func (u *UniqueNames) Claim(base string) string {
	candidate := base
	for n := 2; u.taken[strings.ToLower(candidate)]; n++ {
		candidate = fmt.Sprintf("%s_%d", base, n)
	}
	u.taken[strings.ToLower(candidate)] = true
	return candidate
}

// manifestID derives a valid XML id token from a basename. XML names
// cannot start with a digit.
func manifestID(basename string) string {
	if basename == "" {
		return "item"
	}
	first := basename[0]
	if first >= '0' && first <= '9' {
		return "x" + basename
	}
	return basename
}
