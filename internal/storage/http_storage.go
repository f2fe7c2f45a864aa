package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"time"

	apperrors "go-image-stitcher/internal/errors"
)

type ImageFetcher interface {
	FetchImage(ctx context.Context, ref string) (image.Image, error)
}

// ErrStatusNotFound is returned when the server answers 404 for a frame
type ErrStatusNotFound struct {
	URL string
}

func (e *ErrStatusNotFound) Error() string {
	return fmt.Sprintf("client error: status code %d for %s", http.StatusNotFound, e.URL)
}

// HTTPImageFetcher downloads frames over HTTP with retries on transient failures
type HTTPImageFetcher struct {
	client  *http.Client
	backoff time.Duration
	limits  DecodeLimits
}

// NewHTTPImageFetcher creates an HTTP image fetcher
func NewHTTPImageFetcher(timeout time.Duration) *HTTPImageFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// A stitch pulls many frames from the same host, so keep a few idle connections per host
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		DisableCompression:     false,
		MaxResponseHeaderBytes: 4096,

		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	return &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,

			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		backoff: time.Second,
		limits:  DefaultDecodeLimits(),
	}
}

// WithLimits sets the decode limits applied to every response body
func (h *HTTPImageFetcher) WithLimits(limits DecodeLimits) *HTTPImageFetcher {
	h.limits = limits
	return h
}

// WithBackoff sets the base delay between attempts
func (h *HTTPImageFetcher) WithBackoff(d time.Duration) *HTTPImageFetcher {
	h.backoff = d
	return h
}

func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req.Header.Set("Accept", "image/png, image/jpeg, image/webp, image/bmp, image/tiff, */*")
	req.Header.Set("User-Agent", "Go-Image-Stitcher/1.0")

	// 3 attempts, retrying only network errors and 5xx responses
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * h.backoff):
			}
		}

		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		if resp.StatusCode == http.StatusOK {
			if h.limits.MaxBytes > 0 && resp.ContentLength > h.limits.MaxBytes {
				resp.Body.Close()
				return nil, apperrors.NewValidationError(
					fmt.Sprintf("frame is %d bytes, the limit is %d", resp.ContentLength, h.limits.MaxBytes), nil)
			}
			img, _, err := DecodeWithLimits(resp.Body, h.limits)
			resp.Body.Close()
			if err != nil {
				return nil, err
			}
			return img, nil
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, &ErrStatusNotFound{URL: imageURL}
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return nil, fmt.Errorf("client error: status code %d", resp.StatusCode)
		default:
			lastErr = fmt.Errorf("server error: status code %d", resp.StatusCode)
		}
	}

	return nil, fmt.Errorf("failed to fetch image after 3 attempts: %w", lastErr)
}
