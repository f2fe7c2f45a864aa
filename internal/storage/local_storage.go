package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ImageExtensions are the file extensions picked up when listing a directory
var ImageExtensions = []string{".png", ".jpg", ".jpeg"}

// ErrFileNotFound is returned for local references that do not exist
type ErrFileNotFound struct {
	Path string
	Err  error
}

func (e *ErrFileNotFound) Error() string {
	return fmt.Sprintf("file %s not found", e.Path)
}

func (e *ErrFileNotFound) Unwrap() error {
	return e.Err
}

// LocalImageFetcher reads frames from the local filesystem
type LocalImageFetcher struct {
	root   string
	limits DecodeLimits
}

// NewLocalImageFetcher creates a fetcher resolving relative paths against root
func NewLocalImageFetcher(root string) *LocalImageFetcher {
	return &LocalImageFetcher{root: root, limits: DefaultDecodeLimits()}
}

// WithLimits sets the decode limits applied to every file
func (l *LocalImageFetcher) WithLimits(limits DecodeLimits) *LocalImageFetcher {
	l.limits = limits
	return l
}

// FetchImage opens and decodes a plain path or file:// reference
func (l *LocalImageFetcher) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.resolve(ref)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ErrFileNotFound{Path: path, Err: err}
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	img, _, err := DecodeWithLimits(file, l.limits)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func (l *LocalImageFetcher) resolve(ref string) (string, error) {
	path := ref
	if strings.HasPrefix(ref, "file://") {
		parsed, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("invalid file reference: %w", err)
		}
		path = parsed.Path
	}
	if !filepath.IsAbs(path) && l.root != "" {
		path = filepath.Join(l.root, path)
	}
	return filepath.Clean(path), nil
}

// ListImages walks dir recursively and returns every png/jpg/jpeg file, sorted by path
func ListImages(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ErrFileNotFound{Path: dir, Err: err}
		}
		return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, want := range ImageExtensions {
			if ext == want {
				paths = append(paths, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	sort.Strings(paths)
	return paths, nil
}
