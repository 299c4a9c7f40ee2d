package domain

import "strings"

// SanitizeFileName maps a symbol to a file-safe name: a leading caret is
// dropped and anything outside [A-Za-z0-9._-] becomes an underscore.
func SanitizeFileName(symbol string) string {
	var b strings.Builder
	for _, r := range strings.TrimPrefix(strings.TrimSpace(symbol), "^") {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
