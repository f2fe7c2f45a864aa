package analyzer

import (
	"image"
	"math"
	"runtime"
	"sync"

	"go-image-stitcher/internal/stitcher"
	"go-image-stitcher/pkg/validation"

	"gonum.org/v1/gonum/stat"
)

// parallelThreshold is the pixel count above which rows are summed in strips
const parallelThreshold = 100000

type metricsCalculator struct{}

// NewMetricsCalculator creates a new metrics calculator using Gonum
func NewMetricsCalculator() MetricsCalculator {
	return &metricsCalculator{}
}

// Calculate measures one frame
func (mc *metricsCalculator) Calculate(index int, img image.Image) validation.FrameMetrics {
	bounds := img.Bounds()
	m := validation.FrameMetrics{Index: index, Width: bounds.Dx(), Height: bounds.Dy()}
	if m.Width == 0 || m.Height == 0 {
		return m
	}
	m.Brightness, m.Contrast = mc.CalculateBrightness(stitcher.ToGray(img))
	return m
}

// CalculateBrightness returns the mean gray level and its standard deviation.
// Every row has the same width, so the mean of row means is the pixel mean.
func (mc *metricsCalculator) CalculateBrightness(gray *image.Gray) (float64, float64) {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return 0, 0
	}

	rowMeans := make([]float64, height)
	rowSquares := make([]float64, height)

	numWorkers := 1
	if width*height >= parallelThreshold {
		numWorkers = min(runtime.NumCPU(), height)
	}
	rowsPerWorker := (height + numWorkers - 1) / numWorkers // ceil division

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		startY := i * rowsPerWorker
		endY := min(startY+rowsPerWorker, height)
		if startY >= endY {
			break
		}
		wg.Add(1)
		go func(startY, endY int) {
			defer wg.Done()
			for y := startY; y < endY; y++ {
				row := gray.Pix[y*gray.Stride : y*gray.Stride+width]
				var sum, squares float64
				for _, v := range row {
					f := float64(v)
					sum += f
					squares += f * f
				}
				rowMeans[y] = sum / float64(width)
				rowSquares[y] = squares / float64(width)
			}
		}(startY, endY)
	}
	wg.Wait()

	mean := stat.Mean(rowMeans, nil)
	variance := stat.Mean(rowSquares, nil) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}
