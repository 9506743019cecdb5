package paircheck

import "github.com/sergi/go-diff/diffmatchpatch"

// SegmentType tags one region of a line diff.
type SegmentType string

const (
	SegmentUnchanged SegmentType = "unchanged"
	SegmentAdded     SegmentType = "added"   // present only in the second output
	SegmentRemoved   SegmentType = "removed" // present only in the first output
)

// Segment is one region of the line-aligned diff. Concatenating the
// unchanged and removed segments reproduces the first output; unchanged and
// added reproduce the second.
type Segment struct {
	Type SegmentType `json:"type"`
	Text string      `json:"text"`
}

// LineDiff computes an LCS-style line-level diff of two normalized outputs.
// Segment texts carry exactly the input bytes, so concatenating a side's
// segments reproduces that input with no trimming needed.
func LineDiff(a, b string) []Segment {
	dmp := diffmatchpatch.New()

	// Line mode: collapse lines to runes so the LCS works on whole lines,
	// then rehydrate.
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	segments := make([]Segment, 0, len(diffs))
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}

		seg := Segment{Text: d.Text}

		switch d.Type {
		case diffmatchpatch.DiffEqual:
			seg.Type = SegmentUnchanged
		case diffmatchpatch.DiffDelete:
			seg.Type = SegmentRemoved
		case diffmatchpatch.DiffInsert:
			seg.Type = SegmentAdded
		}

		segments = append(segments, seg)
	}

	return segments
}
