package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddress())
	assert.Equal(t, 255, cfg.HeaderHeight)
	assert.Equal(t, 300, cfg.FooterHeight)
	assert.Equal(t, []int{240, 540, 960}, cfg.Columns)
	assert.Equal(t, "png", cfg.OutputFormat)
	assert.Equal(t, 200, cfg.MaxFrames)
	assert.Equal(t, 40_000_000, cfg.MaxFramePixels)
	assert.Equal(t, int64(64*1024*1024), cfg.MaxFrameBytes)
	assert.False(t, cfg.AzureEnabled())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HEADER_HEIGHT", "100")
	t.Setenv("FOOTER_HEIGHT", "50")
	t.Setenv("X_COLUMNS", "10, 20,30")
	t.Setenv("OUTPUT_FORMAT", "JPG")
	t.Setenv("STITCH_TIMEOUT", "2m")
	t.Setenv("AZURE_STORAGE_ACCOUNT", "acct")
	t.Setenv("AZURE_STORAGE_KEY", "a2V5")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []int{10, 20, 30}, cfg.Columns)
	assert.Equal(t, "jpeg", cfg.OutputFormat)
	assert.Equal(t, 2*time.Minute, cfg.StitchTimeout)
	assert.True(t, cfg.AzureEnabled())

	opts := cfg.StitchOptions()
	assert.Equal(t, 100, opts.HeaderHeight)
	assert.Equal(t, 50, opts.FooterHeight)
	assert.Equal(t, "jpeg", opts.OutputFormat)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "PORT", "70000"},
		{"non numeric port", "PORT", "http"},
		{"negative body size", "MAX_REQUEST_BODY_SIZE", "-1"},
		{"negative pixel limit", "MAX_FRAME_PIXELS", "-5"},
		{"bad column list", "X_COLUMNS", "1,two"},
		{"duplicate columns", "X_COLUMNS", "5,5"},
		{"negative header", "HEADER_HEIGHT", "-3"},
		{"unknown format", "OUTPUT_FORMAT", "gif"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadFromEnv()
			assert.Error(t, err)
		})
	}
}

func TestParseIntList(t *testing.T) {
	got, err := ParseIntList("240,540,,960")
	require.NoError(t, err)
	assert.Equal(t, []int{240, 540, 960}, got)

	_, err = ParseIntList(" , ")
	assert.Error(t, err)
}
