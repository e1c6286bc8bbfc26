package util

import "strings"

// TruncateString cuts s to maxRunes runes and appends "..." when anything was
// dropped. maxRunes <= 0 leaves s as is.
func TruncateString(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

// Preview flattens s onto one line and truncates it, for log fields and error context.
func Preview(s string, maxRunes int) string {
	return TruncateString(strings.Join(strings.Fields(s), " "), maxRunes)
}
