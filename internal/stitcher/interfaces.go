package stitcher

import "image"

// Diagnostic snapshot stages
const (
	StagePreprocessed = "preprocessed"
	StageCanvas       = "canvas"
	StageCanvasFinal  = "canvas-final"
)

// SnapshotSink receives intermediate images for diagnostics.
// The image is only valid for the duration of the call; sinks that keep it must copy.
type SnapshotSink interface {
	Snapshot(stage string, index int, img image.Image)
}

// SnapshotFunc adapts a function to SnapshotSink
type SnapshotFunc func(stage string, index int, img image.Image)

// Snapshot calls f
func (f SnapshotFunc) Snapshot(stage string, index int, img image.Image) {
	f(stage, index, img)
}

// ProgressFunc is called after each frame is aligned against its predecessor
type ProgressFunc func(result AlignmentResult)

// Searcher finds the vertical shift aligning two column sample sets
type Searcher interface {
	Search(prev, cur ColumnSampleSet) (AlignmentResult, error)

	// Lifecycle management
	Close() error
}
