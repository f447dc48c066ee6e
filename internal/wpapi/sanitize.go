package wpapi

import (
	"html"
	"regexp"
	"strings"
)

var (
	blockBreakPattern = regexp.MustCompile(`(?i)</(?:p|div|li|h[1-6]|blockquote|td|tr)>|<(?:br|hr)\s*/?>`)
	tagPattern        = regexp.MustCompile(`(?s)<[^>]*>`)
)

// SanitizeHTML reduces an HTML error body to plain text: block elements
// become breaks, all other tags are stripped, entities are unescaped, and the
// surviving block texts are joined with single spaces.
func SanitizeHTML(body string) string {
	text := blockBreakPattern.ReplaceAllString(body, "\n")
	text = tagPattern.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}

// looksLikeHTML reports whether a response body is markup rather than JSON.
func looksLikeHTML(body string) bool {
	trimmed := strings.TrimSpace(body)
	return strings.HasPrefix(trimmed, "<")
}
