package stitcher

import (
	"image"
	"image/color"
	"math/rand"
)

// createStrip creates a tall image of pseudo-random, never-black rows
func createStrip(width, height int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(20 + rng.Intn(236)),
				G: uint8(20 + rng.Intn(236)),
				B: uint8(20 + rng.Intn(236)),
				A: 255,
			})
		}
	}
	return img
}

// window returns a copy of rows [from, from+height) of strip, re-based to (0,0)
func window(strip *image.RGBA, from, height int) *image.RGBA {
	width := strip.Bounds().Dx()
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out.Set(x, y, strip.At(x, from+y))
		}
	}
	return out
}

// scrollSequence cuts count overlapping frames out of one strip, step rows apart
func scrollSequence(width, height, step, count int) (*image.RGBA, []image.Image) {
	strip := createStrip(width, height+step*(count-1), 42)
	frames := make([]image.Image, count)
	for i := range frames {
		frames[i] = window(strip, i*step, height)
	}
	return strip, frames
}

func samplesOf(index int, columns ...[]uint8) ColumnSampleSet {
	set := ColumnSampleSet{Index: index}
	for i, c := range columns {
		set.Columns = append(set.Columns, i)
		set.Samples = append(set.Samples, c)
	}
	return set
}

func sameRows(a, b image.Image, rows int) bool {
	ab, bb := a.Bounds(), b.Bounds()
	for y := 0; y < rows; y++ {
		for x := 0; x < ab.Dx(); x++ {
			r1, g1, b1, a1 := a.At(ab.Min.X+x, ab.Min.Y+y).RGBA()
			r2, g2, b2, a2 := b.At(bb.Min.X+x, bb.Min.Y+y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				return false
			}
		}
	}
	return true
}
