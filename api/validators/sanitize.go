package validators

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Free-text limits, counted in characters.
const (
	MaxReasonLength = 500
	MaxNoteLength   = 500
	MaxNameLength   = 120
)

// SanitizeString trims input, drops control characters and cuts it to at
// most maxLen characters. Multi-byte text (Devanagari, Tamil) is cut on a
// character boundary, never inside one. maxLen <= 0 disables the cut.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == utf8.RuneError || (unicode.IsControl(r) && r != '\n') {
			return -1
		}
		return r
	}, input))
	if maxLen <= 0 || utf8.RuneCountInString(cleaned) <= maxLen {
		return cleaned
	}
	runes := []rune(cleaned)
	return strings.TrimSpace(string(runes[:maxLen]))
}

// SanitizeReason cleans a cancellation or failure reason.
func SanitizeReason(input string) string {
	return SanitizeString(input, MaxReasonLength)
}

// SanitizeNote cleans an admin note on a withdrawal.
func SanitizeNote(input string) string {
	return SanitizeString(input, MaxNoteLength)
}
