package stitcher

import (
	"image"
	"image/draw"

	apperrors "go-image-stitcher/internal/errors"
)

// Preprocess converts img to grayscale and crops header and footer rows from the
// grayscale copy. The original is kept untouched for compositing.
func Preprocess(index int, img image.Image, header, footer int) (Frame, error) {
	bounds := img.Bounds()
	height := bounds.Dy()
	if header < 0 || footer < 0 || header+footer >= height {
		return Frame{}, apperrors.NewInvalidCropError(index, header, footer, height)
	}

	// Re-based to (0,0) so rows index directly into the sample slices
	crop := image.Rect(bounds.Min.X, bounds.Min.Y+header, bounds.Max.X, bounds.Max.Y-footer)
	gray := image.NewGray(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Draw(gray, gray.Bounds(), img, crop.Min, draw.Src)

	return Frame{
		Index:     index,
		Original:  img,
		Processed: gray,
	}, nil
}

// ToGray returns a grayscale copy of img re-based to (0,0)
func ToGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	return gray
}
