package stitcher

import (
	"image"
	"image/color"
	"testing"

	apperrors "go-image-stitcher/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paddedImage builds an image whose bottom n rows are at intensity <= 5 and whose
// row height-n-1 has exactly one pixel above the threshold
func paddedImage(kind string, width, height, n int) image.Image {
	set := func(img interface{ Set(x, y int, c color.Color) }) {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v := uint8(200)
				switch {
				case y >= height-n:
					v = uint8((x + y) % 6) // 0..5, all at or below the threshold
				case y == height-n-1:
					v = 0
					if x == width/2 {
						v = 6
					}
				}
				img.Set(x, y, color.Gray{Y: v})
			}
		}
	}

	rect := image.Rect(0, 0, width, height)
	switch kind {
	case "gray":
		img := image.NewGray(rect)
		set(img)
		return img
	case "rgba":
		img := image.NewRGBA(rect)
		set(img)
		return img
	default:
		img := image.NewNRGBA(rect)
		set(img)
		return img
	}
}

func TestTrim_DropsTrailingDarkRows(t *testing.T) {
	const height = 12
	for _, kind := range []string{"gray", "rgba", "nrgba"} {
		for n := 0; n < height; n++ {
			img := paddedImage(kind, 7, height, n)

			trimmed, err := Trim(img, DefaultThreshold)
			require.NoError(t, err, "kind=%s n=%d", kind, n)
			assert.Equal(t, height-n, trimmed.Bounds().Dy(), "kind=%s n=%d", kind, n)
			assert.Equal(t, 7, trimmed.Bounds().Dx())
		}
	}
}

func TestTrim_AllBlack(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 5, 9))
	for y := 0; y < 9; y++ {
		for x := 0; x < 5; x++ {
			img.Set(x, y, color.RGBA{5, 5, 5, 255})
		}
	}

	_, err := Trim(img, DefaultThreshold)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAllBlackImage))

	// Raising the pixels above the threshold keeps every row
	trimmed, err := Trim(img, 4)
	require.NoError(t, err)
	assert.Equal(t, 9, trimmed.Bounds().Dy())
}

func TestTrimBelow_StartsAtLimit(t *testing.T) {
	img := paddedImage("rgba", 4, 20, 0)

	trimmed, err := TrimBelow(img, DefaultThreshold, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, trimmed.Bounds().Dy())

	// Out of range limits fall back to the full height
	trimmed, err = TrimBelow(img, DefaultThreshold, 99)
	require.NoError(t, err)
	assert.Equal(t, 20, trimmed.Bounds().Dy())
}

func TestTrim_SubImageOrigin(t *testing.T) {
	full := paddedImage("rgba", 6, 30, 4).(*image.RGBA)
	sub := full.SubImage(image.Rect(0, 10, 6, 30))

	trimmed, err := Trim(sub, DefaultThreshold)
	require.NoError(t, err)
	assert.Equal(t, 16, trimmed.Bounds().Dy())
	assert.Equal(t, 10, trimmed.Bounds().Min.Y)
}
