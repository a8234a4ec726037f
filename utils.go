package photoshelf

import (
	"fmt"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// BlobKeyPrefix is the namespace every photo blob key lives under.
	BlobKeyPrefix = "photos/"

	maxExtLen = 10

	// DefaultPageLimit is used when a list request omits the limit.
	DefaultPageLimit = 100
	// MaxPageLimit bounds the size of a single list page.
	MaxPageLimit = 1000
)

// SafeExt returns the extension of name including the dot, or "" when the
// extension is missing, longer than 10 characters, or contains anything but
// ASCII letters and digits.
func SafeExt(name string) string {
	if name == "" {
		return ""
	}
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	ext := path.Ext(base)
	// ".env" style names have no extension
	if ext == base {
		return ""
	}
	if len(ext) < 1 || len(ext) > maxExtLen {
		return ""
	}
	for _, r := range ext[1:] {
		if !isExtChar(r) {
			return ""
		}
	}
	return ext
}

func isExtChar(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}

// NewBlobKey mints a fresh key of the form photos/{uuid}{ext}.
func NewBlobKey(id uuid.UUID, originalName string) string {
	return BlobKeyPrefix + id.String() + SafeExt(originalName)
}

// IsValidKey validates that a string is usable as a blob key or key segment.
// It checks that the key:
//   - is not empty, ".", or "/"
//   - is relative and does not end with "/"
//   - does not contain "..", "//", or "." segments
//   - does not contain \ ? # ~
//   - is valid UTF-8 without control characters or whitespace
func IsValidKey(p string) bool {
	if p == "" || p == "/" || p == "." {
		return false
	}

	if p[0] == '/' {
		return false
	}

	if strings.HasSuffix(p, "/") {
		return false
	}

	if strings.Contains(p, "..") {
		return false
	}

	if strings.Contains(p, "//") {
		return false
	}

	if strings.ContainsAny(p, `\?#~`) {
		return false
	}

	if !utf8.ValidString(p) {
		return false
	}

	if strings.Contains(p, "/./") || strings.HasSuffix(p, "/.") || strings.HasPrefix(p, "./") {
		return false
	}

	for _, r := range p {
		if r < 0x20 || r == 0x7f || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}

// Normalize applies the default limit. Negative values and limits above
// MaxPageLimit are rejected.
func (p Page) Normalize() (Page, error) {
	if p.Limit < 0 {
		return Page{}, fmt.Errorf("page: %w: limit must not be negative", ErrInvalidInput)
	}
	if p.Limit > MaxPageLimit {
		return Page{}, fmt.Errorf("page: %w: limit must be at most %d", ErrInvalidInput, MaxPageLimit)
	}
	if p.Offset < 0 {
		return Page{}, fmt.Errorf("page: %w: offset must not be negative", ErrInvalidInput)
	}
	if p.Limit == 0 {
		p.Limit = DefaultPageLimit
	}
	return p, nil
}
