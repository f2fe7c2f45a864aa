package stitcher

import "image"

// Frame pairs an input image with the grayscale copy used for alignment
type Frame struct {
	Index     int
	Original  image.Image
	Processed *image.Gray
}

// ColumnSampleSet holds one full-height intensity column per sampled x coordinate.
// All samples have the same length.
type ColumnSampleSet struct {
	Index   int
	Columns []int
	Samples [][]uint8
}

// Height returns the length shared by every sample
func (s ColumnSampleSet) Height() int {
	if len(s.Samples) == 0 {
		return 0
	}
	return len(s.Samples[0])
}

// AlignmentResult is the best vertical shift between two consecutive frames
type AlignmentResult struct {
	Index      int `json:"index"`
	Shift      int `json:"shift"`
	Deviation  int `json:"deviation"`
	Candidates int `json:"candidates"`

	// Confidence is only set when Options.ScoreConfidence is on
	Confidence float64 `json:"confidence,omitempty"`
}

// Composite is a filled canvas and the row just below the pasted content
type Composite struct {
	Canvas *image.RGBA
	Top    int
}

// Result is the outcome of a stitch run
type Result struct {
	Image  image.Image       `json:"-"`
	Width  int               `json:"width"`
	Height int               `json:"height"`
	Top    int               `json:"top"`
	Shifts []AlignmentResult `json:"shifts"`
}

// ShiftValues returns the bare shift of every alignment in order
func (r *Result) ShiftValues() []int {
	shifts := make([]int, len(r.Shifts))
	for i, a := range r.Shifts {
		shifts[i] = a.Shift
	}
	return shifts
}
