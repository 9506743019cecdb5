package paircheck

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reconstruct rebuilds one side of the diff: unchanged plus removed
// concatenates to the first input, unchanged plus added to the second.
func reconstruct(segments []Segment, side SegmentType) string {
	var b strings.Builder

	for _, seg := range segments {
		if seg.Type == SegmentUnchanged || seg.Type == side {
			b.WriteString(seg.Text)
		}
	}

	return b.String()
}

func TestLineDiffRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
	}{
		{"single line change", "1\n2\n3", "1\nX\n3"},
		{"added lines", "a\nb", "a\nb\nc\nd"},
		{"removed lines", "a\nb\nc\nd", "a\nd"},
		{"disjoint", "foo", "bar"},
		{"empty left", "", "x\ny"},
		{"long common prefix", "1\n2\n3\n4\n5\n6", "1\n2\n3\n4\n5\n7"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			segments := LineDiff(test.a, test.b)
			require.NotEmpty(t, segments)

			assert.Equal(t, test.a, reconstruct(segments, SegmentRemoved))
			assert.Equal(t, test.b, reconstruct(segments, SegmentAdded))
		})
	}
}

func TestLineDiffAlignsLines(t *testing.T) {
	segments := LineDiff("keep\nold\nkeep2", "keep\nnew\nkeep2")

	var removed, added []string
	for _, seg := range segments {
		switch seg.Type {
		case SegmentRemoved:
			removed = append(removed, strings.TrimSuffix(seg.Text, "\n"))
		case SegmentAdded:
			added = append(added, strings.TrimSuffix(seg.Text, "\n"))
		}
	}

	assert.Equal(t, []string{"old"}, removed)
	assert.Equal(t, []string{"new"}, added)
}
