package ingest

import (
	"regexp"
	"strings"
)

var trailingBlanks = regexp.MustCompile(`[ \t]+\n`)

// NormalizeWhitespace unifies line endings and strips trailing blanks so
// the separator-based splitter sees clean paragraph breaks. Extracted PDF
// text is full of space-padded lines and carriage returns that would
// otherwise defeat the "\n\n" separator.
func NormalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "")
	return trailingBlanks.ReplaceAllString(s, "\n")
}
