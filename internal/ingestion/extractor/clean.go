package extractor

import (
	"regexp"
	"strings"
)

var (
	pageNumberLine = regexp.MustCompile(`(?m)^[ \t]*\d+[ \t]*\r?$`)
	pageMarker     = regexp.MustCompile(`(?i)\bpage\s+\d+(\s+of\s+\d+)?\b`)
	embeddedURL    = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
)

// Clean strips bare page-number lines, "Page N" / "Page N of M" markers and URLs, then collapses every
// whitespace run to one space.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = pageNumberLine.ReplaceAllString(s, "")
	s = pageMarker.ReplaceAllString(s, "")
	s = embeddedURL.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}
