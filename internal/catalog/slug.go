package catalog

import (
	"regexp"
	"strings"
)

var (
	slugStripPattern = regexp.MustCompile(`[^\w\s-]`)
	slugDashPattern  = regexp.MustCompile(`[\s_-]+`)
)

// Slugify converts a title to a URL-friendly slug: lowercase, punctuation
// stripped, whitespace and underscores collapsed to single dashes.
func Slugify(text string) string {
	slug := strings.ToLower(text)
	slug = slugStripPattern.ReplaceAllString(slug, "")
	slug = slugDashPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
