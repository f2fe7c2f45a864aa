package service

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"sync"

	apperrors "go-image-stitcher/internal/errors"
	"go-image-stitcher/internal/storage"
)

// scrollFrames cuts count overlapping width x height frames, step rows apart, out of random content
func scrollFrames(width, height, step, count int, seed int64) []image.Image {
	rng := rand.New(rand.NewSource(seed))
	total := height + step*(count-1)
	strip := image.NewRGBA(image.Rect(0, 0, width, total))
	for y := 0; y < total; y++ {
		for x := 0; x < width; x++ {
			strip.Set(x, y, color.RGBA{uint8(20 + rng.Intn(236)), uint8(20 + rng.Intn(236)), uint8(20 + rng.Intn(236)), 255})
		}
	}
	frames := make([]image.Image, count)
	for i := range frames {
		frames[i] = strip.SubImage(image.Rect(0, i*step, width, i*step+height))
	}
	return frames
}

// frameRepository serves frames from memory, keyed by URL
type frameRepository struct {
	frames map[string]image.Image
}

func newFrameRepository(frames []image.Image) (*frameRepository, []string) {
	repo := &frameRepository{frames: map[string]image.Image{}}
	urls := make([]string, len(frames))
	for i, f := range frames {
		urls[i] = fmt.Sprintf("https://frames.example.com/%d.png", i)
		repo.frames[urls[i]] = f
	}
	return repo, urls
}

func (r *frameRepository) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	img, ok := r.frames[ref]
	if !ok {
		return nil, &storage.ErrStatusNotFound{URL: ref}
	}
	return img, nil
}

func (r *frameRepository) FetchImages(ctx context.Context, refs []string) ([]image.Image, error) {
	out := make([]image.Image, len(refs))
	for i, ref := range refs {
		img, err := r.FetchImage(ctx, ref)
		if err != nil {
			return nil, apperrors.NewInputNotFoundError(i, ref, err)
		}
		out[i] = img
	}
	return out, nil
}

func (r *frameRepository) ValidateImageURL(ref string) error {
	return nil
}

// memoryBlobs records uploads
type memoryBlobs struct {
	mu      sync.Mutex
	uploads map[string]image.Image
}

func (m *memoryBlobs) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.uploads[ref]
	if !ok {
		return nil, &storage.ErrBlobNotFound{Blob: ref}
	}
	return img, nil
}

func (m *memoryBlobs) PutImage(ctx context.Context, container, blobName string, img image.Image, format string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploads == nil {
		m.uploads = map[string]image.Image{}
	}
	ref := fmt.Sprintf("azblob://%s/%s", container, blobName)
	m.uploads[ref] = img
	return ref, nil
}
