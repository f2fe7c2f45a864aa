package strategy

import (
	"fmt"
	"runtime"
	"slices"

	"go-image-stitcher/internal/stitcher"
)

// Strategy names accepted by ForName
const (
	Phone    = "phone"
	Adaptive = "adaptive"
	Fast     = "fast"
)

// StitchStrategy tunes stitch options for a family of captures
type StitchStrategy interface {
	// Configure derives options for frames of the given width from base
	Configure(base stitcher.Options, width int) stitcher.Options
	GetStrategyName() string
}

// PhoneStrategy keeps the options as given, the defaults target 1080px wide phone captures
type PhoneStrategy struct{}

// NewPhoneStrategy creates a new phone strategy
func NewPhoneStrategy() StitchStrategy {
	return &PhoneStrategy{}
}

func (s *PhoneStrategy) Configure(base stitcher.Options, width int) stitcher.Options {
	return base
}

// GetStrategyName returns the strategy name
func (s *PhoneStrategy) GetStrategyName() string {
	return Phone
}

// AdaptiveStrategy rescales the sampled columns to the frame width,
// keeping them at the same relative positions as the phone defaults
type AdaptiveStrategy struct {
	referenceWidth int
}

// NewAdaptiveStrategy creates a strategy scaling columns relative to a 1080px reference
func NewAdaptiveStrategy() StitchStrategy {
	return &AdaptiveStrategy{referenceWidth: 1080}
}

func (s *AdaptiveStrategy) Configure(base stitcher.Options, width int) stitcher.Options {
	if width <= 0 || width == s.referenceWidth {
		return base
	}
	return base.WithColumns(ScaleColumns(base.Columns, s.referenceWidth, width)...)
}

// GetStrategyName returns the strategy name
func (s *AdaptiveStrategy) GetStrategyName() string {
	return Adaptive
}

// FastStrategy is the adaptive layout with the shift search spread over every CPU
type FastStrategy struct {
	adaptive *AdaptiveStrategy
	workers  int
}

// NewFastStrategy creates a strategy using every CPU for the shift search
func NewFastStrategy() StitchStrategy {
	return &FastStrategy{
		adaptive: &AdaptiveStrategy{referenceWidth: 1080},
		workers:  runtime.NumCPU(),
	}
}

func (s *FastStrategy) Configure(base stitcher.Options, width int) stitcher.Options {
	opts := s.adaptive.Configure(base, width)
	if opts.Workers <= 1 {
		opts = opts.WithWorkers(s.workers)
	}
	return opts
}

// GetStrategyName returns the strategy name
func (s *FastStrategy) GetStrategyName() string {
	return Fast
}

// ScaleColumns maps columns chosen for fromWidth onto toWidth, dropping duplicates
// produced by rounding and clamping into [0, toWidth)
func ScaleColumns(columns []int, fromWidth, toWidth int) []int {
	scaled := make([]int, 0, len(columns))
	seen := make(map[int]bool, len(columns))
	for _, c := range columns {
		x := (c*toWidth + fromWidth/2) / fromWidth
		if x >= toWidth {
			x = toWidth - 1
		}
		if x < 0 {
			x = 0
		}
		if !seen[x] {
			seen[x] = true
			scaled = append(scaled, x)
		}
	}
	return scaled
}

// CustomColumns reports whether columns were chosen instead of left at the defaults
func CustomColumns(columns []int) bool {
	return !slices.Equal(columns, stitcher.DefaultColumns)
}

// Apply runs s on base. With keepColumns set the base columns survive
// unchanged; every other effect of the strategy still applies.
func Apply(s StitchStrategy, base stitcher.Options, width int, keepColumns bool) stitcher.Options {
	columns := append([]int(nil), base.Columns...)
	opts := s.Configure(base, width)
	if keepColumns {
		opts = opts.WithColumns(columns...)
	}
	return opts
}

// ForName returns the strategy registered under name, empty means phone
func ForName(name string) (StitchStrategy, error) {
	switch name {
	case "", Phone:
		return NewPhoneStrategy(), nil
	case Adaptive:
		return NewAdaptiveStrategy(), nil
	case Fast:
		return NewFastStrategy(), nil
	default:
		return nil, fmt.Errorf("unknown stitch strategy: %s", name)
	}
}

// StitchContext manages the stitch strategy
type StitchContext struct {
	strategy StitchStrategy
}

// NewStitchContext creates a new stitch context
func NewStitchContext(strategy StitchStrategy) *StitchContext {
	return &StitchContext{
		strategy: strategy,
	}
}

// SetStrategy changes the stitch strategy
func (c *StitchContext) SetStrategy(strategy StitchStrategy) {
	c.strategy = strategy
}

// Options derives options for frames of the given width using the current strategy
func (c *StitchContext) Options(base stitcher.Options, width int) stitcher.Options {
	return c.strategy.Configure(base, width)
}

// GetCurrentStrategy returns the current strategy name
func (c *StitchContext) GetCurrentStrategy() string {
	return c.strategy.GetStrategyName()
}
