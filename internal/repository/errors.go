package repository

import "errors"

var (
	// ErrInvalidImageURL indicates an invalid image URL
	ErrInvalidImageURL = errors.New("invalid image URL")

	// ErrUnsupportedScheme indicates no fetcher is configured for a reference's scheme
	ErrUnsupportedScheme = errors.New("no storage configured for reference scheme")

	// ErrJobNotFound indicates the stitch job was not found
	ErrJobNotFound = errors.New("stitch job not found")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
