package analyzer

import "go-image-stitcher/pkg/validation"

// Report is the outcome of inspecting a frame sequence
type Report struct {
	Metrics  []validation.FrameMetrics
	Warnings []validation.FrameIssue
}

// WarningMessages flattens the warnings for API responses
func (r *Report) WarningMessages() []string {
	if r == nil || len(r.Warnings) == 0 {
		return nil
	}
	out := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		out[i] = w.String()
	}
	return out
}
