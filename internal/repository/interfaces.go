package repository

import (
	"context"
	"image"
	"time"
)

// ImageRepository defines the interface for frame data access operations
type ImageRepository interface {
	// FetchImage retrieves a single frame by reference
	FetchImage(ctx context.Context, ref string) (image.Image, error)

	// FetchImages retrieves every frame, preserving order
	FetchImages(ctx context.Context, refs []string) ([]image.Image, error)

	// ValidateImageURL reports whether a fetcher exists for the reference
	ValidateImageURL(ref string) error
}

// JobStatus is the lifecycle state of a stitch job
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobRepository defines the interface for stitch job history
type JobRepository interface {
	// SaveJob inserts or replaces a job record
	SaveJob(ctx context.Context, job *Job) error

	// GetJob retrieves a job by ID
	GetJob(ctx context.Context, id string) (*Job, error)

	// ListJobs returns the most recent jobs first
	ListJobs(ctx context.Context, limit int) ([]*Job, error)

	Close() error
}

// Job records one stitch request and its outcome
type Job struct {
	ID                string    `json:"id"`
	Status            JobStatus `json:"status"`
	FrameURLs         []string  `json:"frame_urls"`
	FrameCount        int       `json:"frame_count"`
	DroppedFrames     []int     `json:"dropped_frames,omitempty"`
	Width             int       `json:"width"`
	Height            int       `json:"height"`
	Shifts            []int     `json:"shifts"`
	OutputFormat      string    `json:"output_format"`
	OutputURL         string    `json:"output_url,omitempty"`
	Error             string    `json:"error,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	ProcessingTimeSec float64   `json:"processing_time_sec"`
}
