// Package strings holds text helpers shared by the output formatters.
package strings

import (
	"strings"
)

// DefaultCellMaxLen is the widest error or description cell a table renders.
const DefaultCellMaxLen = 60

// MinTruncateLen is the smallest maxLen Truncate honours: one character
// plus "...".
const MinTruncateLen = 4

// Truncate flattens s to a single line and shortens it to maxLen runes,
// ending in "..." when anything was cut. Runs of whitespace, including
// newlines from wrapped errors, collapse to one space.
//
// Args:
//   - s: The text to shorten
//   - maxLen: Maximum length of the result in runes, clamped to MinTruncateLen
//
// Returns:
//   - The single-line, possibly shortened text
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// Cell is Truncate with DefaultCellMaxLen.
func Cell(s string) string {
	return Truncate(s, DefaultCellMaxLen)
}
