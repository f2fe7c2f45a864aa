package stitcher

import (
	"fmt"

	apperrors "go-image-stitcher/internal/errors"
)

// DefaultColumns are the x coordinates sampled when none are configured
var DefaultColumns = []int{240, 540, 960}

const (
	// DefaultHeaderHeight is the status bar height cropped from typical phone captures
	DefaultHeaderHeight = 255
	// DefaultFooterHeight is the navigation bar height cropped from typical phone captures
	DefaultFooterHeight = 300
	// DefaultThreshold is the intensity at or below which a row counts as padding
	DefaultThreshold = 5
	// DefaultOutputFormat is the encoding used when none is given
	DefaultOutputFormat = "png"
)

// Options provides configuration for a stitch run
type Options struct {
	// Cropping
	HeaderHeight int `json:"header_height" yaml:"headerHeight"`
	FooterHeight int `json:"footer_height" yaml:"footerHeight"`

	// Alignment
	Columns  []int `json:"x_columns" yaml:"columns"`
	Workers  int   `json:"workers" yaml:"workers"`
	MaxShift int   `json:"max_shift" yaml:"maxShift"`

	// Trimming
	Threshold int `json:"threshold" yaml:"threshold"`

	// Passed through to the encoder, never interpreted by the stitcher
	OutputFormat string `json:"output_format" yaml:"outputFormat"`

	// Diagnostics
	ScoreConfidence bool         `json:"score_confidence" yaml:"scoreConfidence"`
	Snapshots       SnapshotSink `json:"-" yaml:"-"`
	Progress        ProgressFunc `json:"-" yaml:"-"`
}

// DefaultOptions returns default stitch options
func DefaultOptions() Options {
	return Options{
		HeaderHeight: DefaultHeaderHeight,
		FooterHeight: DefaultFooterHeight,
		Columns:      append([]int(nil), DefaultColumns...),
		Workers:      1,
		MaxShift:     0, // search the full sample height
		Threshold:    DefaultThreshold,
		OutputFormat: DefaultOutputFormat,
	}
}

// WithCrop sets header and footer heights
func (opts Options) WithCrop(header, footer int) Options {
	opts.HeaderHeight = header
	opts.FooterHeight = footer
	return opts
}

// WithColumns sets the sampled x coordinates
func (opts Options) WithColumns(columns ...int) Options {
	opts.Columns = append([]int(nil), columns...)
	return opts
}

// WithThreshold sets the trim intensity threshold
func (opts Options) WithThreshold(threshold int) Options {
	opts.Threshold = threshold
	return opts
}

// WithWorkers enables the parallel shift search when workers > 1
func (opts Options) WithWorkers(workers int) Options {
	opts.Workers = workers
	return opts
}

// WithMaxShift bounds the shift search to [0, maxShift)
func (opts Options) WithMaxShift(maxShift int) Options {
	opts.MaxShift = maxShift
	return opts
}

// WithConfidence scores every alignment against its full deviation curve.
// This evaluates each shift a second time.
func (opts Options) WithConfidence(enabled bool) Options {
	opts.ScoreConfidence = enabled
	return opts
}

// WithSnapshots installs a diagnostic sink
func (opts Options) WithSnapshots(sink SnapshotSink) Options {
	opts.Snapshots = sink
	return opts
}

// WithProgress installs a per-image alignment callback
func (opts Options) WithProgress(fn ProgressFunc) Options {
	opts.Progress = fn
	return opts
}

// Validate checks the options independently of any image
func (opts Options) Validate() error {
	if opts.HeaderHeight < 0 || opts.FooterHeight < 0 {
		return apperrors.NewValidationError(
			fmt.Sprintf("header and footer heights must be >= 0 (got %d, %d)", opts.HeaderHeight, opts.FooterHeight), nil)
	}
	if len(opts.Columns) == 0 {
		return apperrors.NewValidationError("at least one sample column is required", nil)
	}
	seen := make(map[int]struct{}, len(opts.Columns))
	for _, x := range opts.Columns {
		if x < 0 {
			return apperrors.NewValidationError(fmt.Sprintf("sample column %d must be >= 0", x), nil)
		}
		if _, dup := seen[x]; dup {
			return apperrors.NewValidationError(fmt.Sprintf("sample column %d is listed twice", x), nil)
		}
		seen[x] = struct{}{}
	}
	if opts.Threshold < 0 || opts.Threshold > 255 {
		return apperrors.NewValidationError(fmt.Sprintf("threshold must be within [0, 255] (got %d)", opts.Threshold), nil)
	}
	if opts.MaxShift < 0 {
		return apperrors.NewValidationError(fmt.Sprintf("max shift must be >= 0 (got %d)", opts.MaxShift), nil)
	}
	return nil
}
