package triage

import (
	"strings"
	"unicode"
)

// Normalize lower-cases text and keeps only ASCII letters, ASCII digits and
// whitespace. Whitespace is unicode.IsSpace plus the information separators
// U+001C..U+001F, so vertical tabs and no-break spaces survive and keep
// neighbouring words apart.
func Normalize(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case unicode.IsSpace(r), r >= 0x1c && r <= 0x1f:
			return r
		}
		return -1
	}, strings.ToLower(text))
}
