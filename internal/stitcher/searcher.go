package stitcher

import (
	"fmt"

	apperrors "go-image-stitcher/internal/errors"
)

// candidate is one evaluated shift
type candidate struct {
	shift     int
	deviation int
}

// NewSearcher returns a sequential searcher, or a pooled one when workers > 1
func NewSearcher(workers, maxShift int) Searcher {
	if workers > 1 {
		pool := NewWorkerPool(workers)
		pool.Start()
		return &parallelSearcher{pool: pool, maxShift: maxShift}
	}
	return &sequentialSearcher{maxShift: maxShift}
}

type sequentialSearcher struct {
	maxShift int
}

// Search scans every candidate shift from 0 upward and keeps the first minimum
func (s *sequentialSearcher) Search(prev, cur ColumnSampleSet) (AlignmentResult, error) {
	limit, err := searchLimit(prev, cur, s.maxShift)
	if err != nil {
		return AlignmentResult{}, err
	}
	best, err := scanRange(prev, cur, 0, limit)
	if err != nil {
		return AlignmentResult{}, err
	}
	return AlignmentResult{Index: cur.Index, Shift: best.shift, Deviation: best.deviation, Candidates: limit}, nil
}

func (s *sequentialSearcher) Close() error {
	return nil
}

type parallelSearcher struct {
	pool     *WorkerPool
	maxShift int
}

// Search splits the candidate range into contiguous chunks, one per worker.
// Chunks are merged in shift order so ties resolve exactly as the sequential scan does.
func (s *parallelSearcher) Search(prev, cur ColumnSampleSet) (AlignmentResult, error) {
	limit, err := searchLimit(prev, cur, s.maxShift)
	if err != nil {
		return AlignmentResult{}, err
	}

	chunks := s.pool.Size()
	if chunks > limit {
		chunks = limit
	}
	size := (limit + chunks - 1) / chunks

	type chunkResult struct {
		best candidate
		err  error
	}
	results := make([]chunkResult, chunks)
	for c := 0; c < chunks; c++ {
		from, to := c*size, (c+1)*size
		if to > limit {
			to = limit
		}
		slot := &results[c]
		if from >= to {
			slot.best = candidate{shift: -1}
			continue
		}
		if !s.pool.Submit(func() {
			slot.best, slot.err = scanRange(prev, cur, from, to)
		}) {
			return AlignmentResult{}, apperrors.NewInternalError("shift search pool is closed", nil)
		}
	}
	s.pool.Wait()

	best := candidate{shift: -1}
	for _, r := range results {
		if r.err != nil {
			return AlignmentResult{}, r.err
		}
		if r.best.shift < 0 {
			continue
		}
		if best.shift < 0 || r.best.deviation < best.deviation {
			best = r.best
		}
	}
	return AlignmentResult{Index: cur.Index, Shift: best.shift, Deviation: best.deviation, Candidates: limit}, nil
}

func (s *parallelSearcher) Close() error {
	s.pool.Close()
	return nil
}

// SearchCurve returns deviation(s) for every candidate shift, for diagnostics
func SearchCurve(prev, cur ColumnSampleSet, maxShift int) ([]int, error) {
	limit, err := searchLimit(prev, cur, maxShift)
	if err != nil {
		return nil, err
	}
	curve := make([]int, limit)
	for shift := 0; shift < limit; shift++ {
		curve[shift], err = deviation(prev, cur, shift)
		if err != nil {
			return nil, err
		}
	}
	return curve, nil
}

// searchLimit validates the sample sets and returns the exclusive upper bound of candidate shifts
func searchLimit(prev, cur ColumnSampleSet, maxShift int) (int, error) {
	if len(prev.Samples) != len(cur.Samples) {
		return 0, apperrors.NewShapeMismatchError(apperrors.StageSearch, cur.Index,
			fmt.Sprintf("sample sets have %d and %d columns", len(prev.Samples), len(cur.Samples)))
	}
	height := prev.Height()
	if len(prev.Samples) == 0 || height == 0 {
		return 0, apperrors.NewEmptySampleError(cur.Index, 0)
	}
	for i := range prev.Samples {
		if len(prev.Samples[i]) != height || len(cur.Samples[i]) != height {
			return 0, apperrors.NewShapeMismatchError(apperrors.StageSearch, cur.Index,
				fmt.Sprintf("column %d samples have lengths %d and %d, want %d",
					i, len(prev.Samples[i]), len(cur.Samples[i]), height))
		}
	}
	if maxShift > 0 && maxShift < height {
		return maxShift, nil
	}
	return height, nil
}

// scanRange evaluates shifts in [from, to) and returns the first minimum
func scanRange(prev, cur ColumnSampleSet, from, to int) (candidate, error) {
	best := candidate{shift: -1}
	for shift := from; shift < to; shift++ {
		dev, err := deviation(prev, cur, shift)
		if err != nil {
			return candidate{}, err
		}
		if best.shift < 0 || dev < best.deviation {
			best = candidate{shift: shift, deviation: dev}
		}
	}
	return best, nil
}

// deviation is the floored mean absolute difference between prev rows [shift, H)
// and cur rows [0, H-shift) over all sampled columns
func deviation(prev, cur ColumnSampleSet, shift int) (int, error) {
	var total, pairs int
	for c := range prev.Samples {
		a, b := prev.Samples[c], cur.Samples[c]
		for y := shift; y < len(a); y++ {
			d := int(a[y]) - int(b[y-shift])
			if d < 0 {
				d = -d
			}
			total += d
		}
		if n := len(a) - shift; n > 0 {
			pairs += n
		}
	}
	if pairs == 0 {
		return 0, apperrors.NewEmptySampleError(cur.Index, shift)
	}
	return total / pairs, nil
}
