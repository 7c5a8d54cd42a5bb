package core

import (
	"regexp"
	"strings"
)

var slugRegex = regexp.MustCompile(`[^a-z0-9]+`)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Slugify lowers `s` and replaces every run of non-alphanumeric characters with a dash.
func Slugify(s string) string {
	return strings.Trim(slugRegex.ReplaceAllString(CleanString(s, true), "-"), "-")
}
