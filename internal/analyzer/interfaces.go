package analyzer

import (
	"context"
	"image"

	"go-image-stitcher/pkg/validation"
)

// FrameInspector measures and checks frames before they are stitched
type FrameInspector interface {
	Inspect(ctx context.Context, frames []image.Image) (*Report, error)
}

// MetricsCalculator handles per-frame metrics computation
type MetricsCalculator interface {
	Calculate(index int, img image.Image) validation.FrameMetrics
	CalculateBrightness(gray *image.Gray) (mean, stdDev float64)
}
