package component

import (
	"regexp"
	"strings"
)

// separatorRegex matches runs of whitespace and underscores.
var separatorRegex = regexp.MustCompile(`[\s_]+`)

// nameRegex is the custom-element naming rule: lowercase, starts with a
// letter, contains at least one hyphen.
var nameRegex = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)+$`)

// docsSuffixRegex matches names that would collide with documentation keys.
var docsSuffixRegex = regexp.MustCompile(`-docs(-v[0-9]+)?$`)

// Normalize turns user input into a candidate component name:
// trim, lowercase, and collapse whitespace/underscores to a single hyphen.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = separatorRegex.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ValidName reports whether name is usable as a custom-element tag and blob prefix.
// Names ending in "-docs" or "-docs-v{n}" are reserved for documentation blobs.
func ValidName(name string) bool {
	return nameRegex.MatchString(name) && !docsSuffixRegex.MatchString(name)
}

// NameTokens splits a component name into its hyphen-separated segments.
func NameTokens(name string) []string {
	parts := strings.Split(name, "-")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
