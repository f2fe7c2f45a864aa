package validation

import (
	"fmt"

	apperrors "go-image-stitcher/internal/errors"
)

// Issue severities
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue types
const (
	IssueTooSmall   = "too_small"
	IssueTooLarge   = "too_large"
	IssueBlankFrame = "blank_frame"
	IssueTooDark    = "too_dark"
)

// FrameThresholds defines configurable limits for input frames
type FrameThresholds struct {
	// Resolution limits
	MinWidth       int
	MinHeight      int
	MaxTotalPixels int

	// Gray-level standard deviation below which a frame carries no alignment signal
	MinContrast float64

	// Mean gray level below which a frame is reported as dark
	MinBrightness float64
}

// DefaultFrameThresholds returns the default frame thresholds
func DefaultFrameThresholds() FrameThresholds {
	return FrameThresholds{
		MinWidth:       8,
		MinHeight:      8,
		MaxTotalPixels: 40_000_000,
		MinContrast:    1.0,
		MinBrightness:  4.0,
	}
}

// FrameMetrics holds the measurements of one frame
type FrameMetrics struct {
	Index      int     `json:"index"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
}

// FrameIssue is a single finding about a frame
type FrameIssue struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"`
	ImageIndex  int     `json:"image_index"`
	ActualValue float64 `json:"actual_value,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
}

func (i FrameIssue) String() string {
	return fmt.Sprintf("frame %d: %s", i.ImageIndex, i.Message)
}

// FrameValidator checks fetched frames before they are stitched
type FrameValidator struct {
	thresholds FrameThresholds
}

// NewFrameValidator creates a validator with the default thresholds
func NewFrameValidator() *FrameValidator {
	return NewFrameValidatorWithThresholds(DefaultFrameThresholds())
}

// NewFrameValidatorWithThresholds creates a validator with custom thresholds
func NewFrameValidatorWithThresholds(thresholds FrameThresholds) *FrameValidator {
	return &FrameValidator{thresholds: thresholds}
}

// Thresholds returns the active thresholds
func (fv *FrameValidator) Thresholds() FrameThresholds {
	return fv.thresholds
}

// ValidateFrame reports the issues of one frame
func (fv *FrameValidator) ValidateFrame(m FrameMetrics) []FrameIssue {
	var issues []FrameIssue

	if m.Width < fv.thresholds.MinWidth || m.Height < fv.thresholds.MinHeight {
		issues = append(issues, FrameIssue{
			Type:        IssueTooSmall,
			Message:     fmt.Sprintf("frame is %dx%d, at least %dx%d is required", m.Width, m.Height, fv.thresholds.MinWidth, fv.thresholds.MinHeight),
			Severity:    SeverityError,
			ImageIndex:  m.Index,
			ActualValue: float64(m.Width * m.Height),
			Threshold:   float64(fv.thresholds.MinWidth * fv.thresholds.MinHeight),
		})
	}

	if fv.thresholds.MaxTotalPixels > 0 && m.Width*m.Height > fv.thresholds.MaxTotalPixels {
		issues = append(issues, FrameIssue{
			Type:        IssueTooLarge,
			Message:     fmt.Sprintf("frame has %d pixels, the limit is %d", m.Width*m.Height, fv.thresholds.MaxTotalPixels),
			Severity:    SeverityError,
			ImageIndex:  m.Index,
			ActualValue: float64(m.Width * m.Height),
			Threshold:   float64(fv.thresholds.MaxTotalPixels),
		})
	}

	if m.Contrast < fv.thresholds.MinContrast {
		issues = append(issues, FrameIssue{
			Type:        IssueBlankFrame,
			Message:     "frame is a single flat color, its alignment will be arbitrary",
			Severity:    SeverityWarning,
			ImageIndex:  m.Index,
			ActualValue: m.Contrast,
			Threshold:   fv.thresholds.MinContrast,
		})
	} else if m.Brightness < fv.thresholds.MinBrightness {
		issues = append(issues, FrameIssue{
			Type:        IssueTooDark,
			Message:     "frame is almost black",
			Severity:    SeverityWarning,
			ImageIndex:  m.Index,
			ActualValue: m.Brightness,
			Threshold:   fv.thresholds.MinBrightness,
		})
	}

	return issues
}

// ValidateFrames checks every frame. The first error-severity issue is returned
// as a validation error carrying the frame index; warnings are returned as-is.
func (fv *FrameValidator) ValidateFrames(metrics []FrameMetrics) ([]FrameIssue, error) {
	var warnings []FrameIssue
	for _, m := range metrics {
		for _, issue := range fv.ValidateFrame(m) {
			if issue.Severity == SeverityError {
				return warnings, apperrors.NewValidationError(issue.Message, nil).AtImage(issue.ImageIndex)
			}
			warnings = append(warnings, issue)
		}
	}
	return warnings, nil
}
