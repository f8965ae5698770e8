// Package transcript splits recognizer output into sentence-level
// Segments with proportional timestamps (§4.6).
package transcript

import "strings"

// normalizeWhitespace joins text on whitespace and collapses runs.
func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
