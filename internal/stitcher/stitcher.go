package stitcher

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	apperrors "go-image-stitcher/internal/errors"
	"go-image-stitcher/internal/logger"

	"github.com/sirupsen/logrus"
)

// Stitcher runs the preprocess, sample, search, compose and trim pipeline
type Stitcher struct {
	opts Options
	log  *logrus.Entry
}

// NewStitcher creates a stitcher. A nil log uses the package logger.
func NewStitcher(opts Options, log *logrus.Entry) *Stitcher {
	if log == nil {
		log = logger.Component("stitcher")
	}
	return &Stitcher{opts: opts, log: log}
}

// Options returns the options the stitcher was built with
func (s *Stitcher) Options() Options {
	return s.opts
}

// Stitch composes images, given in scroll order, into a single trimmed image.
// Configuration and every image are validated before the alignment loop starts.
func (s *Stitcher) Stitch(ctx context.Context, images []image.Image) (*Result, error) {
	opts := s.opts
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, apperrors.NewValidationError("at least one image is required", nil)
	}
	if err := s.validateImages(images); err != nil {
		return nil, err
	}

	frames := make([]Frame, len(images))
	for i, img := range images {
		frame, err := Preprocess(i, img, opts.HeaderHeight, opts.FooterHeight)
		if err != nil {
			return nil, err
		}
		frames[i] = frame
		snapshot(opts.Snapshots, StagePreprocessed, i, frame.Processed)
	}

	searcher := NewSearcher(opts.Workers, opts.MaxShift)
	defer searcher.Close()

	prev, err := SampleColumns(0, frames[0].Processed, opts.Columns)
	if err != nil {
		return nil, err
	}

	alignments := make([]AlignmentResult, 0, len(frames)-1)
	for i := 1; i < len(frames); i++ {
		if err := ctx.Err(); err != nil {
			return nil, contextError(err, i)
		}
		start := time.Now()

		cur, err := SampleColumns(i, frames[i].Processed, opts.Columns)
		if err != nil {
			return nil, err
		}
		result, err := searcher.Search(prev, cur)
		if err != nil {
			return nil, err
		}
		if opts.ScoreConfidence {
			curve, err := SearchCurve(prev, cur, opts.MaxShift)
			if err != nil {
				return nil, err
			}
			result.Confidence = Confidence(curve, result.Shift)
		}
		alignments = append(alignments, result)
		prev = cur

		s.log.WithFields(logrus.Fields{
			"image":      i + 1,
			"shift":      result.Shift,
			"deviation":  result.Deviation,
			"elapsed_ms": time.Since(start).Milliseconds(),
		}).Debug("Aligned image")

		if opts.Progress != nil {
			opts.Progress(result)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, contextError(err, apperrors.NoIndex)
	}

	shifts := make([]int, len(alignments))
	for i, a := range alignments {
		shifts[i] = a.Shift
	}
	composite, err := Compose(images, shifts, opts.HeaderHeight, opts.FooterHeight, opts.Snapshots)
	if err != nil {
		return nil, err
	}

	trimmed, err := TrimBelow(composite.Canvas, opts.Threshold, composite.Top)
	if err != nil {
		return nil, err
	}

	bounds := trimmed.Bounds()
	s.log.WithFields(logrus.Fields{
		"images": len(images),
		"width":  bounds.Dx(),
		"height": bounds.Dy(),
		"top":    composite.Top,
	}).Info("Stitch completed")

	return &Result{
		Image:  trimmed,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Top:    composite.Top,
		Shifts: alignments,
	}, nil
}

// validateImages checks widths, crop sizes and sample columns of every image
func (s *Stitcher) validateImages(images []image.Image) error {
	width := 0
	for i, img := range images {
		if img == nil {
			return apperrors.NewInputNotFoundError(i, fmt.Sprintf("image %d", i), nil)
		}
		b := img.Bounds()
		if i == 0 {
			width = b.Dx()
		}
		if b.Dx() != width {
			return apperrors.NewShapeMismatchError(apperrors.StagePreprocess, i,
				fmt.Sprintf("image width %d differs from first image width %d", b.Dx(), width))
		}
		if s.opts.HeaderHeight+s.opts.FooterHeight >= b.Dy() {
			return apperrors.NewInvalidCropError(i, s.opts.HeaderHeight, s.opts.FooterHeight, b.Dy())
		}
		for _, x := range s.opts.Columns {
			if x >= b.Dx() {
				return apperrors.NewColumnOutOfRangeError(i, x, b.Dx())
			}
		}
	}
	return nil
}

func contextError(err error, index int) error {
	var appErr *apperrors.AppError
	if errors.Is(err, context.DeadlineExceeded) {
		appErr = apperrors.NewTimeoutError("stitch deadline exceeded", err)
	} else {
		appErr = apperrors.NewProcessingError("stitch cancelled", err)
	}
	return appErr.AtImage(index)
}
