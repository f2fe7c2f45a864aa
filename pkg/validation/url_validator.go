package validation

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	apperrors "go-image-stitcher/internal/errors"
)

// DefaultMaxFrames caps how many frames a single stitch request may reference
const DefaultMaxFrames = 200

// URLValidator checks frame references before any of them is fetched
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
	maxFrames      int
}

// NewURLValidator accepts http, https and azblob references on any host
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https", "azblob"},
		allowedHosts:   []string{}, // empty means all hosts allowed
		maxFrames:      DefaultMaxFrames,
	}
}

// NewURLValidatorWithOptions creates a URL validator with custom options
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
		maxFrames:      DefaultMaxFrames,
	}
}

// WithMaxFrames overrides the frame count limit, zero or less disables it
func (v *URLValidator) WithMaxFrames(n int) *URLValidator {
	v.maxFrames = n
	return v
}

// ValidateImageURL validates a single frame reference
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return apperrors.NewValidationError("URL scheme not allowed", nil)
	}

	// file:///abs/path has no host
	if parsedURL.Scheme == "file" {
		if parsedURL.Path == "" {
			return apperrors.NewValidationError("file URL must have a path", nil)
		}
		return nil
	}

	if parsedURL.Host == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}

	if parsedURL.Scheme == "azblob" && strings.Trim(parsedURL.Path, "/") == "" {
		return apperrors.NewValidationError("blob URL must name a blob", nil)
	}

	if len(v.allowedHosts) > 0 && !v.isHostAllowed(parsedURL.Host) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}

	return nil
}

// ValidateFrameURLs validates an ordered frame list, reporting the first bad index
func (v *URLValidator) ValidateFrameURLs(urls []string) error {
	if len(urls) == 0 {
		return apperrors.NewValidationError("at least one frame URL is required", nil)
	}
	if v.maxFrames > 0 && len(urls) > v.maxFrames {
		return apperrors.NewValidationError(fmt.Sprintf("too many frames: %d (limit %d)", len(urls), v.maxFrames), nil)
	}
	for i, u := range urls {
		if err := v.ValidateImageURL(u); err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) {
				return appErr.AtImage(i)
			}
			return err
		}
	}
	return nil
}

func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	return slices.Contains(v.allowedSchemes, scheme)
}

// isHostAllowed reports true for every host when no host list is set
func (v *URLValidator) isHostAllowed(host string) bool {
	return len(v.allowedHosts) == 0 || slices.Contains(v.allowedHosts, host)
}
