package ocr

import (
	"regexp"
	"strings"
)

var reWhitespace = regexp.MustCompile(`\s+`)

// NormalizeText turns every whitespace run, line breaks and form feeds
// included, into one space and trims the ends.
func NormalizeText(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

// JoinPages joins per-page texts with a single space and normalizes the result.
func JoinPages(pages []string) string {
	return NormalizeText(strings.Join(pages, " "))
}
