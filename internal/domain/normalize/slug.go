package normalize

import (
	"strings"
	"unicode"
)

const maxSlugLength = 80

// Slug derives a URL-safe identifier from an entity name: lowercase,
// non-alphanumerics collapsed to single hyphens, trimmed to a bounded length
// without cutting a word in half.
func Slug(name string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}

	slug := b.String()
	if len(slug) <= maxSlugLength {
		return slug
	}
	cut := strings.LastIndexByte(slug[:maxSlugLength+1], '-')
	if cut <= 0 {
		return slug[:maxSlugLength]
	}
	return slug[:cut]
}
