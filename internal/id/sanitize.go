package id

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxLength caps a sanitized ID in bytes, leaving room for a file extension
// within common filesystem name limits.
const MaxLength = 200

var (
	illegalRe         = regexp.MustCompile(`[/?<>\\:*|"]`)
	controlRe         = regexp.MustCompile(`[\x00-\x1f\x{80}-\x{9f}]`)
	reservedRe        = regexp.MustCompile(`^\.+$`)
	windowsReservedRe = regexp.MustCompile(`(?i)^(con|prn|aux|nul|com[0-9]|lpt[0-9])(\..*)?$`)
	trailingRe        = regexp.MustCompile(`[. ]+$`)
)

// Sanitize maps a user-supplied string to a filesystem-safe ID. Separators,
// control characters and other illegal bytes are dropped, dot-only and
// Windows-reserved names collapse to "", and trailing dots and spaces are
// trimmed. The result may be empty.
func Sanitize(raw string) string {
	s := strings.ToValidUTF8(raw, "")
	for {
		next := sanitizeOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func sanitizeOnce(s string) string {
	s = illegalRe.ReplaceAllString(s, "")
	s = controlRe.ReplaceAllString(s, "")
	s = reservedRe.ReplaceAllString(s, "")
	s = windowsReservedRe.ReplaceAllString(s, "")
	s = trailingRe.ReplaceAllString(s, "")
	if len(s) > MaxLength {
		s = truncate(s, MaxLength)
	}
	return s
}

// Valid reports whether id is non-empty and already in sanitized form.
func Valid(id string) bool {
	return id != "" && Sanitize(id) == id
}

func truncate(s string, max int) string {
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
