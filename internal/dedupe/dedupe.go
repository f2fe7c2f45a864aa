// Package dedupe drops consecutive near-identical captures before stitching.
// A repeated screenshot aligns at shift 0 and only adds a redundant footer pass.
package dedupe

import (
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
	"github.com/sirupsen/logrus"

	"go-image-stitcher/internal/logger"
)

// Disabled turns filtering off when passed as maxDistance
const Disabled = -1

// Filter returns the indices of the frames to keep. A frame is dropped when the
// Hamming distance between its perception hash and the last kept frame's hash is
// at most maxDistance. The first frame is always kept. A negative maxDistance
// keeps every frame.
func Filter(frames []image.Image, maxDistance int) ([]int, error) {
	kept := make([]int, 0, len(frames))
	if maxDistance < 0 {
		for i := range frames {
			kept = append(kept, i)
		}
		return kept, nil
	}

	var last *goimagehash.ImageHash
	for i, frame := range frames {
		if frame == nil {
			return nil, fmt.Errorf("frame %d is nil", i)
		}
		hash, err := goimagehash.PerceptionHash(frame)
		if err != nil {
			return nil, fmt.Errorf("failed to hash frame %d: %w", i, err)
		}

		if last != nil {
			dist, err := last.Distance(hash)
			if err != nil {
				return nil, fmt.Errorf("failed to compare frame %d: %w", i, err)
			}
			if dist <= maxDistance {
				logger.WithFields(logrus.Fields{
					"frame":    i,
					"distance": dist,
				}).Debug("Dropping duplicate frame")
				continue
			}
		}

		kept = append(kept, i)
		last = hash
	}
	return kept, nil
}

// Select returns the frames at the given indices
func Select(frames []image.Image, indices []int) []image.Image {
	out := make([]image.Image, len(indices))
	for i, idx := range indices {
		out[i] = frames[idx]
	}
	return out
}

// Dropped returns the indices in [0, n) missing from kept, which must be ascending
func Dropped(n int, kept []int) []int {
	var dropped []int
	k := 0
	for i := 0; i < n; i++ {
		if k < len(kept) && kept[k] == i {
			k++
			continue
		}
		dropped = append(dropped, i)
	}
	return dropped
}
