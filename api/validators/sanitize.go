package validators

import "strings"

// SanitizeString trims surrounding whitespace and caps the value at maxLen
// runes, never splitting a multi-byte character.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 {
		return trimmed
	}
	seen := 0
	for i := range trimmed {
		if seen == maxLen {
			return trimmed[:i]
		}
		seen++
	}
	return trimmed
}
