package paircheck

import "strings"

// Normalize canonicalizes program output before comparison: line endings
// become LF, trailing whitespace is stripped per line, and trailing blank
// lines are dropped.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	out := strings.Join(lines, "\n")
	return strings.TrimRight(out, "\n")
}
