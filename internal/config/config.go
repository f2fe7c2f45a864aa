package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"go-image-stitcher/internal/stitcher"
	"go-image-stitcher/internal/storage"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	StitchTimeout      time.Duration
	MaxRequestBodySize int64
	MaxFrames          int
	MaxFramePixels     int
	MaxFrameBytes      int64

	// Stitch defaults applied when a request leaves a field unset
	HeaderHeight int
	FooterHeight int
	Columns      []int
	Threshold    int
	OutputFormat string
	Workers      int
	MaxShift     int
	Strategy     string

	JobDBPath string

	AzureAccount         string
	AzureKey             string
	AzureResultContainer string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AzureEnabled reports whether blob credentials are configured
func (c *Config) AzureEnabled() bool {
	return c.AzureAccount != "" && c.AzureKey != ""
}

// StitchOptions returns the configured stitch defaults
func (c *Config) StitchOptions() stitcher.Options {
	opts := stitcher.DefaultOptions().
		WithCrop(c.HeaderHeight, c.FooterHeight).
		WithColumns(c.Columns...).
		WithThreshold(c.Threshold).
		WithWorkers(c.Workers).
		WithMaxShift(c.MaxShift)
	opts.OutputFormat = c.OutputFormat
	return opts
}

func LoadFromEnv() (*Config, error) {
	defaults := stitcher.DefaultOptions()

	// Set defaults
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 60*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		StitchTimeout:      parseDurationOrDefault("STITCH_TIMEOUT", 45*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 1*1024*1024), // 1MB of JSON
		MaxFrames:          int(parseIntOrDefault("MAX_FRAMES", 200)),
		MaxFramePixels:     int(parseIntOrDefault("MAX_FRAME_PIXELS", 40_000_000)),
		MaxFrameBytes:      parseIntOrDefault("MAX_FRAME_BYTES", 64*1024*1024),

		HeaderHeight: int(parseIntOrDefault("HEADER_HEIGHT", int64(defaults.HeaderHeight))),
		FooterHeight: int(parseIntOrDefault("FOOTER_HEIGHT", int64(defaults.FooterHeight))),
		Threshold:    int(parseIntOrDefault("TRIM_THRESHOLD", int64(defaults.Threshold))),
		OutputFormat: storage.NormalizeFormat(getEnvOrDefault("OUTPUT_FORMAT", defaults.OutputFormat)),
		Workers:      int(parseIntOrDefault("SEARCH_WORKERS", int64(defaults.Workers))),
		MaxShift:     int(parseIntOrDefault("MAX_SHIFT", int64(defaults.MaxShift))),
		Strategy:     getEnvOrDefault("STITCH_STRATEGY", "adaptive"),

		JobDBPath: getEnvOrDefault("JOB_DB_PATH", "stitch_jobs.db"),

		AzureAccount:         os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureKey:             os.Getenv("AZURE_STORAGE_KEY"),
		AzureResultContainer: getEnvOrDefault("AZURE_RESULT_CONTAINER", "stitched"),
	}

	columns, err := parseIntListOrDefault("X_COLUMNS", defaults.Columns)
	if err != nil {
		return nil, err
	}
	cfg.Columns = columns

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.RequestTimeout <= 0 || cfg.ImageFetchTimeout <= 0 || cfg.StitchTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, stitch=%s)",
			cfg.RequestTimeout, cfg.ImageFetchTimeout, cfg.StitchTimeout)
	}
	if cfg.MaxFramePixels < 0 || cfg.MaxFrameBytes < 0 {
		return nil, fmt.Errorf("frame limits must be >= 0 (got pixels=%d, bytes=%d)", cfg.MaxFramePixels, cfg.MaxFrameBytes)
	}
	if !storage.SupportedFormat(cfg.OutputFormat) {
		return nil, fmt.Errorf("unsupported OUTPUT_FORMAT: %q", cfg.OutputFormat)
	}
	if err := cfg.StitchOptions().Validate(); err != nil {
		return nil, fmt.Errorf("invalid stitch defaults: %w", err)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// parseIntListOrDefault reads a comma separated list such as "240,540,960"
func parseIntListOrDefault(key string, defaultValue []int) ([]int, error) {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return append([]int(nil), defaultValue...), nil
	}
	return ParseIntList(value)
}

// ParseIntList parses a comma separated list of integers
func ParseIntList(value string) ([]int, error) {
	parts := strings.Split(value, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q in list %q", part, value)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty integer list %q", value)
	}
	return out, nil
}
