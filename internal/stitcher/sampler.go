package stitcher

import (
	"image"

	apperrors "go-image-stitcher/internal/errors"
)

// SampleColumns extracts the full top-to-bottom intensity column at each x coordinate
func SampleColumns(index int, gray *image.Gray, columns []int) (ColumnSampleSet, error) {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	set := ColumnSampleSet{
		Index:   index,
		Columns: append([]int(nil), columns...),
		Samples: make([][]uint8, len(columns)),
	}
	for i, x := range columns {
		if x < 0 || x >= width {
			return ColumnSampleSet{}, apperrors.NewColumnOutOfRangeError(index, x, width)
		}
		column := make([]uint8, height)
		offset := gray.PixOffset(bounds.Min.X+x, bounds.Min.Y)
		for y := 0; y < height; y++ {
			column[y] = gray.Pix[offset]
			offset += gray.Stride
		}
		set.Samples[i] = column
	}
	return set, nil
}
