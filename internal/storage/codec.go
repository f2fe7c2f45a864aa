package storage

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	apperrors "go-image-stitcher/internal/errors"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Default decode limits
const (
	DefaultMaxPixels = 40_000_000
	DefaultMaxBytes  = 64 << 20
)

// DecodeLimits bounds what a single frame may cost to decode. Zero disables a limit.
type DecodeLimits struct {
	MaxPixels int
	MaxBytes  int64
}

// DefaultDecodeLimits returns the default decode limits
func DefaultDecodeLimits() DecodeLimits {
	return DecodeLimits{MaxPixels: DefaultMaxPixels, MaxBytes: DefaultMaxBytes}
}

// Decode decodes any registered format (png, jpeg, bmp, tiff, webp) within the default limits
func Decode(r io.Reader) (image.Image, string, error) {
	return DecodeWithLimits(r, DefaultDecodeLimits())
}

// DecodeWithLimits reads at most MaxBytes and checks the header dimensions
// against MaxPixels before any pixel buffer is allocated
func DecodeWithLimits(r io.Reader, limits DecodeLimits) (image.Image, string, error) {
	if limits.MaxBytes > 0 {
		r = io.LimitReader(r, limits.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if limits.MaxBytes > 0 && int64(len(data)) > limits.MaxBytes {
		return nil, "", apperrors.NewValidationError(
			fmt.Sprintf("frame exceeds %d bytes", limits.MaxBytes), nil)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", apperrors.NewValidationError(
			fmt.Sprintf("frame has invalid dimensions %dx%d", cfg.Width, cfg.Height), nil)
	}
	if limits.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(limits.MaxPixels) {
		return nil, "", apperrors.NewValidationError(
			fmt.Sprintf("frame is %dx%d, over the %d pixel limit", cfg.Width, cfg.Height, limits.MaxPixels), nil)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// NormalizeFormat maps an output format tag or file extension to a codec name
func NormalizeFormat(format string) string {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	switch f {
	case "jpg", "jpeg":
		return "jpeg"
	case "tif", "tiff":
		return "tiff"
	case "":
		return "png"
	default:
		return f
	}
}

// ContentType returns the MIME type for an output format
func ContentType(format string) string {
	switch NormalizeFormat(format) {
	case "jpeg":
		return "image/jpeg"
	case "bmp":
		return "image/bmp"
	case "tiff":
		return "image/tiff"
	default:
		return "image/png"
	}
}

// Extension returns the file extension for an output format, without the dot
func Extension(format string) string {
	switch f := NormalizeFormat(format); f {
	case "jpeg":
		return "jpg"
	default:
		return f
	}
}

// Encode writes img to w in the given format
func Encode(w io.Writer, img image.Image, format string) error {
	switch NormalizeFormat(format) {
	case "png":
		return png.Encode(w, img)
	case "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unsupported output format %q", format), nil)
	}
}

// SupportedFormat reports whether Encode accepts the format
func SupportedFormat(format string) bool {
	switch NormalizeFormat(format) {
	case "png", "jpeg", "bmp", "tiff":
		return true
	}
	return false
}
