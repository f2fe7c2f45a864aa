package analyzer

import (
	"context"
	"image"

	apperrors "go-image-stitcher/internal/errors"
	"go-image-stitcher/internal/logger"
	"go-image-stitcher/pkg/validation"

	"github.com/sirupsen/logrus"
)

type frameInspector struct {
	calculator MetricsCalculator
	validator  *validation.FrameValidator
	log        *logrus.Entry
}

// NewFrameInspector creates an inspector. A nil validator uses the default thresholds.
func NewFrameInspector(validator *validation.FrameValidator, log *logrus.Entry) FrameInspector {
	if validator == nil {
		validator = validation.NewFrameValidator()
	}
	if log == nil {
		log = logger.Component("analyzer")
	}
	return &frameInspector{
		calculator: NewMetricsCalculator(),
		validator:  validator,
		log:        log,
	}
}

// Inspect measures every frame in order and stops at the first frame that
// cannot be stitched
func (fi *frameInspector) Inspect(ctx context.Context, frames []image.Image) (*Report, error) {
	report := &Report{Metrics: make([]validation.FrameMetrics, 0, len(frames))}
	for i, frame := range frames {
		if err := ctx.Err(); err != nil {
			return report, apperrors.NewTimeoutError("frame inspection interrupted", err).AtImage(i)
		}
		if frame == nil {
			return report, apperrors.NewValidationError("frame is missing", nil).AtImage(i)
		}
		report.Metrics = append(report.Metrics, fi.calculator.Calculate(i, frame))
	}

	warnings, err := fi.validator.ValidateFrames(report.Metrics)
	report.Warnings = warnings
	for _, w := range warnings {
		fi.log.WithFields(logrus.Fields{
			"image_index": w.ImageIndex,
			"issue":       w.Type,
			"value":       w.ActualValue,
		}).Warn(w.Message)
	}
	return report, err
}
