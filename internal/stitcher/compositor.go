package stitcher

import (
	"fmt"
	"image"
	"image/draw"

	apperrors "go-image-stitcher/internal/errors"
)

// Compose pastes the originals onto an oversized canvas using the discovered shifts.
// The first image keeps its header, the last image contributes its footer, and every
// image in between contributes only the rows between header and footer.
func Compose(originals []image.Image, shifts []int, header, footer int, sink SnapshotSink) (*Composite, error) {
	if len(originals) == 0 {
		return nil, apperrors.NewValidationError("at least one image is required", nil)
	}
	if len(shifts) != len(originals)-1 {
		return nil, apperrors.NewShapeMismatchError(apperrors.StageCompose, apperrors.NoIndex,
			fmt.Sprintf("got %d shifts for %d images", len(shifts), len(originals)))
	}

	width := originals[0].Bounds().Dx()
	totalHeight := 0
	for i, img := range originals {
		b := img.Bounds()
		if b.Dx() != width {
			return nil, apperrors.NewShapeMismatchError(apperrors.StageCompose, i,
				fmt.Sprintf("image width %d differs from first image width %d", b.Dx(), width))
		}
		if header < 0 || footer < 0 || header+footer >= b.Dy() {
			return nil, apperrors.NewInvalidCropError(i, header, footer, b.Dy())
		}
		totalHeight += b.Dy()
	}

	// Twice the summed heights leaves room for any run of shifts up to that sum
	canvas := image.NewRGBA(image.Rect(0, 0, width, totalHeight*2))
	canvasHeight := canvas.Bounds().Dy()

	first := originals[0].Bounds()
	top := first.Dy() - footer
	paste(canvas, originals[0], first.Min.Y, first.Max.Y-footer, 0)
	snapshot(sink, StageCanvas, 0, canvas)

	for i := 1; i < len(originals); i++ {
		shift := shifts[i-1]
		if shift < 0 {
			return nil, apperrors.NewShapeMismatchError(apperrors.StageCompose, i,
				fmt.Sprintf("negative shift %d", shift))
		}
		top += shift
		if top > canvasHeight {
			return nil, apperrors.NewCanvasOverflowError(i, shift, top, canvasHeight)
		}

		b := originals[i].Bounds()
		content := b.Dy() - header - footer
		paste(canvas, originals[i], b.Min.Y+header, b.Max.Y-footer, top-content)
		snapshot(sink, StageCanvas, i, canvas)
	}

	last := len(originals) - 1
	lb := originals[last].Bounds()
	if top+footer > canvasHeight {
		return nil, apperrors.NewCanvasOverflowError(last, 0, top+footer, canvasHeight)
	}
	paste(canvas, originals[last], lb.Max.Y-footer, lb.Max.Y, top)
	top += footer
	snapshot(sink, StageCanvasFinal, last, canvas)

	return &Composite{Canvas: canvas, Top: top}, nil
}

// paste copies source rows [fromY, toY) to the canvas starting at row destY.
// Rows that would land above the canvas are clipped.
func paste(canvas *image.RGBA, src image.Image, fromY, toY, destY int) {
	if toY <= fromY {
		return
	}
	sb := src.Bounds()
	dst := image.Rect(0, destY, sb.Dx(), destY+toY-fromY)
	draw.Draw(canvas, dst, src, image.Pt(sb.Min.X, fromY), draw.Src)
}

func snapshot(sink SnapshotSink, stage string, index int, img image.Image) {
	if sink != nil {
		sink.Snapshot(stage, index, img)
	}
}
