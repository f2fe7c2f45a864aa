package repository

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/url"
	"runtime"

	apperrors "go-image-stitcher/internal/errors"
	"go-image-stitcher/internal/storage"

	"golang.org/x/sync/errgroup"
)

// Fetchers groups the storage backends a repository routes references to.
// A nil backend makes its scheme unsupported.
type Fetchers struct {
	HTTP  storage.ImageFetcher
	Blob  storage.ImageFetcher
	Local storage.ImageFetcher
}

// StorageImageRepository implements ImageRepository by routing each reference to a backend by scheme
type StorageImageRepository struct {
	fetchers    Fetchers
	concurrency int
}

// NewImageRepository creates a scheme-routed image repository
func NewImageRepository(fetchers Fetchers) *StorageImageRepository {
	return &StorageImageRepository{
		fetchers:    fetchers,
		concurrency: runtime.NumCPU(),
	}
}

// WithConcurrency bounds the number of frames fetched at once
func (r *StorageImageRepository) WithConcurrency(n int) *StorageImageRepository {
	if n > 0 {
		r.concurrency = n
	}
	return r
}

func (r *StorageImageRepository) fetcherFor(ref string) (storage.ImageFetcher, error) {
	if ref == "" {
		return nil, ErrInvalidImageURL
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImageURL, err)
	}

	var fetcher storage.ImageFetcher
	switch parsed.Scheme {
	case "http", "https":
		fetcher = r.fetchers.HTTP
	case storage.BlobScheme:
		fetcher = r.fetchers.Blob
	case "file", "":
		fetcher = r.fetchers.Local
	}
	if fetcher == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, parsed.Scheme)
	}
	return fetcher, nil
}

// ValidateImageURL validates if the provided reference can be fetched
func (r *StorageImageRepository) ValidateImageURL(ref string) error {
	_, err := r.fetcherFor(ref)
	return err
}

// FetchImage retrieves a frame from the backend matching its scheme
func (r *StorageImageRepository) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	fetcher, err := r.fetcherFor(ref)
	if err != nil {
		return nil, apperrors.NewValidationError("unsupported frame reference", err)
	}
	return fetcher.FetchImage(ctx, ref)
}

// FetchImages fetches all frames concurrently. The first failure cancels the rest
// and is reported with its frame index.
func (r *StorageImageRepository) FetchImages(ctx context.Context, refs []string) ([]image.Image, error) {
	images := make([]image.Image, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			img, err := r.FetchImage(gctx, ref)
			if err != nil {
				return classifyFetchError(i, ref, err)
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

func classifyFetchError(index int, ref string, err error) error {
	var (
		appErr       *apperrors.AppError
		httpNotFound *storage.ErrStatusNotFound
		blobNotFound *storage.ErrBlobNotFound
		fileNotFound *storage.ErrFileNotFound
	)
	switch {
	case errors.As(err, &httpNotFound), errors.As(err, &blobNotFound), errors.As(err, &fileNotFound):
		return apperrors.NewInputNotFoundError(index, ref, err)
	case errors.As(err, &appErr):
		return appErr.AtImage(index)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError(fmt.Sprintf("timed out fetching frame %s", ref), err).AtImage(index)
	case errors.Is(err, context.Canceled):
		return apperrors.NewProcessingError("frame fetch cancelled", err).AtImage(index)
	default:
		return apperrors.NewNetworkError(fmt.Sprintf("failed to fetch frame %s", ref), err).AtImage(index)
	}
}
