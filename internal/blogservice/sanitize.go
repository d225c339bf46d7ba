package blogservice

import (
	"regexp"
	"strings"
)

var scriptTagPattern = regexp.MustCompile(`(?is)<\s*script[^>]*>.*?<\s*/\s*script\s*>`)

// sanitizeText strips script elements and surrounding whitespace from a
// user supplied field.
func sanitizeText(s string) string {
	return strings.TrimSpace(scriptTagPattern.ReplaceAllString(s, ""))
}
