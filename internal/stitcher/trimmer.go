package stitcher

import (
	"image"
	"image/color"
	"image/draw"

	apperrors "go-image-stitcher/internal/errors"
)

// Trim crops trailing rows whose every pixel has gray intensity <= threshold
func Trim(img image.Image, threshold int) (image.Image, error) {
	return TrimBelow(img, threshold, img.Bounds().Dy())
}

// TrimBelow is Trim with the scan starting at row limit-1.
// Rows at or below limit must already be known padding.
func TrimBelow(img image.Image, threshold, limit int) (image.Image, error) {
	bounds := img.Bounds()
	height := bounds.Dy()
	if limit > height || limit < 0 {
		limit = height
	}

	last := -1
	for y := limit - 1; y >= 0; y-- {
		if !rowIsBlack(img, bounds.Min.Y+y, threshold) {
			last = y
			break
		}
	}
	if last < 0 {
		return nil, apperrors.NewAllBlackImageError(height, threshold)
	}

	return cropRows(img, last+1), nil
}

func rowIsBlack(img image.Image, y, threshold int) bool {
	bounds := img.Bounds()
	switch src := img.(type) {
	case *image.Gray:
		offset := src.PixOffset(bounds.Min.X, y)
		for _, v := range src.Pix[offset : offset+bounds.Dx()] {
			if int(v) > threshold {
				return false
			}
		}
		return true
	case *image.RGBA:
		offset := src.PixOffset(bounds.Min.X, y)
		row := src.Pix[offset : offset+bounds.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			if int(grayOf(color.RGBA{row[i], row[i+1], row[i+2], row[i+3]})) > threshold {
				return false
			}
		}
		return true
	default:
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if int(grayOf(img.At(x, y))) > threshold {
				return false
			}
		}
		return true
	}
}

func grayOf(c color.Color) uint8 {
	return color.GrayModel.Convert(c).(color.Gray).Y
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// cropRows keeps the first n rows of img
func cropRows(img image.Image, n int) image.Image {
	b := img.Bounds()
	r := image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+n)
	if s, ok := img.(subImager); ok {
		return s.SubImage(r)
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out
}
