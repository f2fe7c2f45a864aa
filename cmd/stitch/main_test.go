package main

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "long.png")

	require.NoError(t, writeImage(path, image.NewRGBA(image.Rect(0, 0, 4, 6)), "png"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestWriteImage_FailedEncodeLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.gif")

	err := writeImage(path, image.NewRGBA(image.Rect(0, 0, 4, 6)), "gif")
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "expected %s to be removed, stat returned %v", path, statErr)
}
