package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypeProcessing   ErrorType = "processing"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeInternal     ErrorType = "internal"

	// Stitching failures. All of them are terminal for the current stitch.
	ErrorTypeInvalidCrop      ErrorType = "invalid_crop"
	ErrorTypeColumnOutOfRange ErrorType = "column_out_of_range"
	ErrorTypeShapeMismatch    ErrorType = "shape_mismatch"
	ErrorTypeEmptySample      ErrorType = "empty_sample"
	ErrorTypeCanvasOverflow   ErrorType = "canvas_overflow"
	ErrorTypeAllBlackImage    ErrorType = "all_black_image"
	ErrorTypeInputNotFound    ErrorType = "input_not_found"
)

// Pipeline stages reported on stitching errors
const (
	StagePreprocess = "preprocess"
	StageSample     = "sample"
	StageSearch     = "search"
	StageCompose    = "compose"
	StageTrim       = "trim"
	StageInput      = "input"
)

// NoIndex marks a location field that does not apply to the error
const NoIndex = -1

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`

	// Location of a stitching fault. Fields that do not apply hold NoIndex.
	Stage      string `json:"stage,omitempty"`
	ImageIndex int    `json:"image_index"`
	Shift      int    `json:"shift"`
	Row        int    `json:"row"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Stage != "" {
		msg = fmt.Sprintf("%s [stage=%s", msg, e.Stage)
		if e.ImageIndex != NoIndex {
			msg += fmt.Sprintf(" image=%d", e.ImageIndex)
		}
		if e.Shift != NoIndex {
			msg += fmt.Sprintf(" shift=%d", e.Shift)
		}
		if e.Row != NoIndex {
			msg += fmt.Sprintf(" row=%d", e.Row)
		}
		msg += "]"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (caused by: %v)", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// AtImage returns a copy of the error located at the given image index
func (e *AppError) AtImage(index int) *AppError {
	cp := *e
	cp.ImageIndex = index
	return &cp
}

func newError(t ErrorType, status int, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
		ImageIndex: NoIndex,
		Shift:      NoIndex,
		Row:        NoIndex,
	}
}

func newStageError(t ErrorType, stage string, index int, message string) *AppError {
	err := newError(t, http.StatusUnprocessableEntity, message, nil)
	err.Stage = stage
	err.ImageIndex = index
	return err
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message, cause)
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return newError(ErrorTypeNetwork, http.StatusBadGateway, message, cause)
}

// NewProcessingError creates a new processing error
func NewProcessingError(message string, cause error) *AppError {
	return newError(ErrorTypeProcessing, http.StatusUnprocessableEntity, message, cause)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return newError(ErrorTypeTimeout, http.StatusGatewayTimeout, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message, cause)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, message, cause)
}

// NewInvalidCropError reports header+footer not fitting inside an image
func NewInvalidCropError(index, header, footer, height int) *AppError {
	err := newStageError(ErrorTypeInvalidCrop, StagePreprocess, index,
		fmt.Sprintf("header %d + footer %d must be less than image height %d", header, footer, height))
	err.StatusCode = http.StatusBadRequest
	return err
}

// NewColumnOutOfRangeError reports a sample column outside an image
func NewColumnOutOfRangeError(index, column, width int) *AppError {
	err := newStageError(ErrorTypeColumnOutOfRange, StageSample, index,
		fmt.Sprintf("column %d is outside image width %d", column, width))
	err.StatusCode = http.StatusBadRequest
	return err
}

// NewShapeMismatchError reports inputs that cannot be compared or composed together
func NewShapeMismatchError(stage string, index int, message string) *AppError {
	err := newStageError(ErrorTypeShapeMismatch, stage, index, message)
	err.StatusCode = http.StatusBadRequest
	return err
}

// NewEmptySampleError reports a deviation computed over zero pixel pairs
func NewEmptySampleError(index, shift int) *AppError {
	err := newStageError(ErrorTypeEmptySample, StageSearch, index, "no comparable pixels between column samples")
	err.Shift = shift
	return err
}

// NewCanvasOverflowError reports a paste that would land outside the canvas
func NewCanvasOverflowError(index, shift, top, canvasHeight int) *AppError {
	err := newStageError(ErrorTypeCanvasOverflow, StageCompose, index,
		fmt.Sprintf("offset %d exceeds canvas height %d", top, canvasHeight))
	err.Shift = shift
	err.Row = top
	return err
}

// NewAllBlackImageError reports a composite with no row above the trim threshold
func NewAllBlackImageError(height, threshold int) *AppError {
	err := newStageError(ErrorTypeAllBlackImage, StageTrim, NoIndex,
		fmt.Sprintf("all %d rows are at or below intensity %d", height, threshold))
	err.Row = 0
	return err
}

// NewInputNotFoundError reports a referenced input that does not exist
func NewInputNotFoundError(index int, ref string, cause error) *AppError {
	err := newStageError(ErrorTypeInputNotFound, StageInput, index, fmt.Sprintf("input not found: %s", ref))
	err.StatusCode = http.StatusNotFound
	err.Cause = cause
	return err
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
