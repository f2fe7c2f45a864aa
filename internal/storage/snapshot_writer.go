package storage

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"go-image-stitcher/internal/logger"
)

// DirectorySink writes diagnostic snapshots as <stage>-<index>.<ext> files.
// Write failures are logged and never interrupt a stitch.
type DirectorySink struct {
	dir    string
	format string
}

// NewDirectorySink creates dir if needed and returns a sink writing into it
func NewDirectorySink(dir, format string) (*DirectorySink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &DirectorySink{dir: dir, format: format}, nil
}

// Path returns the file a snapshot is written to
func (d *DirectorySink) Path(stage string, index int) string {
	return filepath.Join(d.dir, fmt.Sprintf("%s-%d.%s", stage, index, Extension(d.format)))
}

// Snapshot encodes img synchronously, the canvas keeps changing after the call
func (d *DirectorySink) Snapshot(stage string, index int, img image.Image) {
	path := d.Path(stage, index)
	if err := d.write(path, img); err != nil {
		logger.WithError(err).WithField("path", path).Warn("Failed to write snapshot")
	}
}

func (d *DirectorySink) write(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(file, img, d.format); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
