// Package extractor locates and structures the readable content of a page.
// It dispatches to platform-specific selector profiles by hostname, falls
// back to a scoring heuristic for arbitrary pages, and wraps both in a
// fallback chain that always yields one normalized record shape.
package extractor

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	controlChars   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	horizontalRuns = regexp.MustCompile(`[ \t\f\v\r\x{00A0}]+`)
	manyNewlines   = regexp.MustCompile(`\n{3,}`)
)

// Normalize strips control characters, collapses every whitespace run
// (newlines included) to one space and trims the result. It is idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = controlChars.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// CleanStructuredText is Normalize for text whose line breaks matter:
// spaces collapse within each line, lines are trimmed, runs of three or more
// newlines become exactly two, and leading/trailing newlines are dropped.
func CleanStructuredText(text string) string {
	if text == "" {
		return ""
	}

	text = controlChars.ReplaceAllString(text, "")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalRuns.ReplaceAllString(line, SingleSpace))
	}

	cleaned := strings.Join(lines, SingleNewline)
	cleaned = manyNewlines.ReplaceAllString(cleaned, DoubleNewline)
	return strings.Trim(cleaned, SingleNewline)
}

// textLength counts characters, not bytes, so CJK pages score like Latin ones
func textLength(text string) int {
	return utf8.RuneCountInString(text)
}

// truncateRunes caps text at max characters; max <= 0 means unbounded
func truncateRunes(text string, max int) string {
	if max <= 0 || textLength(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max])
}

// ContainsAny checks if a string contains any of the substrings (case-insensitive)
func ContainsAny(s string, substrings []string) bool {
	sLower := strings.ToLower(s)
	for _, substr := range substrings {
		if strings.Contains(sLower, strings.ToLower(substr)) {
			return true
		}
	}
	return false
}
