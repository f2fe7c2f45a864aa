package stitcher

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Confidence reports how many standard deviations the deviation at shift sits below
// the mean of the curve. Flat curves (repetitive or blank content) score 0.
func Confidence(curve []int, shift int) float64 {
	if len(curve) < 2 || shift < 0 || shift >= len(curve) {
		return 0
	}
	values := make([]float64, len(curve))
	for i, v := range curve {
		values[i] = float64(v)
	}
	mean, std := stat.MeanStdDev(values, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return (mean - values[shift]) / std
}
