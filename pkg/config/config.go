// Package config loads stitch settings from YAML files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go-image-stitcher/internal/stitcher"

	"gopkg.in/yaml.v3"
)

// StitchConfig is the YAML form of a stitch run
type StitchConfig struct {
	// Stitch holds the core alignment options
	Stitch struct {
		HeaderHeight int   `yaml:"headerHeight"`
		FooterHeight int   `yaml:"footerHeight"`
		Columns      []int `yaml:"columns"`
		Threshold    int   `yaml:"threshold"`
		Workers      int   `yaml:"workers"`
		MaxShift     int   `yaml:"maxShift"`
	} `yaml:"stitch"`

	// Input controls how frames are picked up
	Input struct {
		// Strategy names a stitch profile: phone, adaptive or fast
		Strategy string `yaml:"strategy"`

		// DedupeDistance drops near-identical consecutive frames, -1 disables it
		DedupeDistance int `yaml:"dedupeDistance"`
	} `yaml:"input"`

	// Output controls what gets written
	Output struct {
		Format string `yaml:"format"`

		// DebugDir receives diagnostic snapshots when set
		DebugDir string `yaml:"debugDir"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *StitchConfig {
	opts := stitcher.DefaultOptions()
	cfg := &StitchConfig{}

	cfg.Stitch.HeaderHeight = opts.HeaderHeight
	cfg.Stitch.FooterHeight = opts.FooterHeight
	cfg.Stitch.Columns = opts.Columns
	cfg.Stitch.Threshold = opts.Threshold
	cfg.Stitch.Workers = opts.Workers
	cfg.Stitch.MaxShift = opts.MaxShift

	cfg.Input.Strategy = "phone"
	cfg.Input.DedupeDistance = -1

	cfg.Output.Format = opts.OutputFormat

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*StitchConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Options().Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *StitchConfig, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// Options converts the file settings into stitcher options
func (c *StitchConfig) Options() stitcher.Options {
	opts := stitcher.DefaultOptions().
		WithCrop(c.Stitch.HeaderHeight, c.Stitch.FooterHeight).
		WithColumns(c.Stitch.Columns...).
		WithThreshold(c.Stitch.Threshold).
		WithWorkers(c.Stitch.Workers).
		WithMaxShift(c.Stitch.MaxShift)
	if c.Output.Format != "" {
		opts.OutputFormat = c.Output.Format
	}
	return opts
}
