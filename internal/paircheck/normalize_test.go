package paircheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"plain", "42", "42"},
		{"crlf endings", "a\r\nb\r\n", "a\nb"},
		{"lone cr endings", "a\rb\r", "a\nb"},
		{"trailing spaces per line", "a  \nb\t\n", "a\nb"},
		{"trailing blank lines", "a\nb\n\n\n", "a\nb"},
		{"interior blank lines kept", "a\n\nb", "a\n\nb"},
		{"leading whitespace kept", "  a\n\tb", "  a\n\tb"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Normalize(test.input))
		})
	}
}

func TestNormalizeEquivalence(t *testing.T) {
	// Outputs that differ only in line endings and trailing whitespace
	// normalize identically.
	assert.Equal(t, Normalize("42\r\n"), Normalize("42\n"))
	assert.Equal(t, Normalize("1 2 3 \n"), Normalize("1 2 3"))
	assert.NotEqual(t, Normalize("42"), Normalize("43"))
}
