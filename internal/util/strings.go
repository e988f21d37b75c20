// Package util provides shared utility functions used across the codebase.
package util

import (
	"github.com/charmbracelet/lipgloss"
)

// TruncateString truncates a string to maxLen runes, adding "…" if truncated.
// This is a simple truncation that does not account for ANSI escape codes or
// wide characters. For styled terminal output, use TruncateWidth instead.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 1 {
		return "…"
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}

// TruncateWidth truncates a string to maxWidth visual columns, adding "…"
// if truncated. Width is measured with lipgloss so styled strings and wide
// characters count by their rendered width.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 1 {
		return "…"
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > maxWidth {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

// PadRight pads a string with spaces to the given visual width. Strings
// already at or beyond the width are returned unchanged.
func PadRight(s string, width int) string {
	for lipgloss.Width(s) < width {
		s += " "
	}
	return s
}
