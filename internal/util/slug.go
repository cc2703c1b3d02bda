package util

import (
	"regexp"
	"strings"
)

var (
	slugSpaces    = regexp.MustCompile(`\s+`)
	slugNonWord   = regexp.MustCompile(`[^a-z0-9\-_]+`)
	slugCollapsed = regexp.MustCompile(`\-\-+`)
)

// Slugify turns a title into a URL-safe identifier: lowercased, spaces
// replaced by hyphens, non-word characters stripped, runs of hyphens
// collapsed.
func Slugify(text string) string {
	slug := strings.ToLower(strings.TrimSpace(text))
	slug = slugSpaces.ReplaceAllString(slug, "-")
	slug = slugNonWord.ReplaceAllString(slug, "")
	slug = slugCollapsed.ReplaceAllString(slug, "-")
	return slug
}
