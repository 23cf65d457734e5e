// Package transcript assembles segment transcripts and strips filler phrases.
package transcript

import "strings"

// Assemble joins segment transcripts in order and collapses whitespace.
func Assemble(segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	return strings.Join(strings.Fields(strings.Join(segments, " ")), " ")
}

// WithTrailingSpace appends one space to non-empty text so consecutive
// dictations do not run together.
func WithTrailingSpace(text string, enabled bool) string {
	if !enabled || text == "" || strings.HasSuffix(text, " ") {
		return text
	}
	return text + " "
}
