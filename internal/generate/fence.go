package generate

import (
	"regexp"
	"strings"
)

// fenceRegex matches a closed markdown code fence with an optional info string.
var fenceRegex = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \\t]*\\r?\\n(.*?)```")

// StripCodeFences extracts code from a model reply. When the reply contains
// fenced blocks, the longest block is the code and the text outside all
// fences is returned as prose. A reply without fences is returned whole as
// code. An unclosed leading fence line is dropped.
func StripCodeFences(text string) (code, prose string) {
	matches := fenceRegex.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		trimmed := strings.TrimSpace(text)
		if strings.HasPrefix(trimmed, "```") {
			if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
				trimmed = trimmed[nl+1:]
			} else {
				trimmed = ""
			}
		}
		return strings.TrimSpace(trimmed), ""
	}

	best := matches[0]
	for _, m := range matches[1:] {
		if m[3]-m[2] > best[3]-best[2] {
			best = m
		}
	}
	code = strings.TrimSpace(text[best[2]:best[3]])

	var outside strings.Builder
	last := 0
	for _, m := range matches {
		outside.WriteString(text[last:m[0]])
		outside.WriteString("\n")
		last = m[1]
	}
	outside.WriteString(text[last:])
	return code, strings.TrimSpace(collapseBlankLines(outside.String()))
}

var blankLinesRegex = regexp.MustCompile(`\n{3,}`)

func collapseBlankLines(s string) string {
	return blankLinesRegex.ReplaceAllString(s, "\n\n")
}
