package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"go-image-stitcher/internal/analyzer"
	"go-image-stitcher/internal/dedupe"
	apperrors "go-image-stitcher/internal/errors"
	"go-image-stitcher/internal/logger"
	"go-image-stitcher/internal/observer"
	"go-image-stitcher/internal/repository"
	"go-image-stitcher/internal/stitcher"
	"go-image-stitcher/internal/storage"
	"go-image-stitcher/internal/strategy"
	"go-image-stitcher/pkg/models"
	"go-image-stitcher/pkg/validation"

	"github.com/sirupsen/logrus"
)

// StitchService defines the interface for stitching frame sequences
type StitchService interface {
	// Stitch fetches the requested frames and composes them into one image
	Stitch(ctx context.Context, req models.StitchRequest) (*StitchOutput, error)

	// GetJob returns a recorded stitch job
	GetJob(ctx context.Context, id string) (*repository.Job, error)

	// ListJobs returns the most recent jobs first
	ListJobs(ctx context.Context, limit int) ([]*repository.Job, error)
}

// StitchOutput is a finished stitch, encoded in the requested format
type StitchOutput struct {
	Response *models.StitchResponse
	Image    image.Image
	Encoded  []byte
}

// Settings holds the service-wide defaults
type Settings struct {
	Defaults        stitcher.Options
	Strategy        string
	DedupeDistance  int
	StitchTimeout   time.Duration
	ResultContainer string

	// FrameLimits bounds the accepted frame sizes, zero value means defaults
	FrameLimits validation.FrameThresholds
}

// stitchService implements StitchService
type stitchService struct {
	images    repository.ImageRepository
	jobs      repository.JobRepository
	blobs     storage.BlobStorage
	events    observer.Subject
	validator *validation.URLValidator
	inspector analyzer.FrameInspector
	settings  Settings
}

// NewStitchService creates a new stitch service. jobs, blobs and events may be nil,
// which disables job history, uploads and event publishing respectively.
func NewStitchService(
	images repository.ImageRepository,
	jobs repository.JobRepository,
	blobs storage.BlobStorage,
	events observer.Subject,
	validator *validation.URLValidator,
	settings Settings,
) StitchService {
	if validator == nil {
		validator = validation.NewURLValidator()
	}
	frameValidator := validation.NewFrameValidator()
	if settings.FrameLimits != (validation.FrameThresholds{}) {
		frameValidator = validation.NewFrameValidatorWithThresholds(settings.FrameLimits)
	}
	return &stitchService{
		images:    images,
		jobs:      jobs,
		blobs:     blobs,
		events:    events,
		validator: validator,
		inspector: analyzer.NewFrameInspector(frameValidator, logger.Component("analyzer")),
		settings:  settings,
	}
}

// Stitch handles one request, from fetching the frames to the optional upload
func (s *stitchService) Stitch(ctx context.Context, req models.StitchRequest) (*StitchOutput, error) {
	start := time.Now()

	if err := s.validator.ValidateFrameURLs(req.URLs); err != nil {
		return nil, err
	}
	opts, err := s.buildOptions(req)
	if err != nil {
		return nil, err
	}
	profile, err := strategy.ForName(firstNonEmpty(req.Strategy, s.settings.Strategy))
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}
	if req.Upload && s.blobs == nil {
		return nil, apperrors.NewValidationError("upload requested but blob storage is not configured", nil)
	}

	job := &repository.Job{
		ID:           repository.NewJobID(),
		Status:       repository.JobRunning,
		FrameURLs:    req.URLs,
		FrameCount:   len(req.URLs),
		OutputFormat: opts.OutputFormat,
		CreatedAt:    start.UTC(),
	}
	log := logger.WithFields(logrus.Fields{"job_id": job.ID, "frames": len(req.URLs)})
	s.saveJob(ctx, job, log)
	s.publish(ctx, observer.StitchEvent{EventType: observer.StitchStarted, JobID: job.ID, FrameCount: len(req.URLs)})

	if s.settings.StitchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.StitchTimeout)
		defer cancel()
	}

	frames, err := s.images.FetchImages(ctx, req.URLs)
	if err != nil {
		return nil, s.fail(ctx, job, start, err, log)
	}
	s.publish(ctx, observer.StitchEvent{EventType: observer.FramesFetched, JobID: job.ID, FrameCount: len(frames)})

	report, err := s.inspector.Inspect(ctx, frames)
	if err != nil {
		return nil, s.fail(ctx, job, start, err, log)
	}

	distance := s.settings.DedupeDistance
	if req.DedupeDistance != nil {
		distance = *req.DedupeDistance
	}
	kept, err := dedupe.Filter(frames, distance)
	if err != nil {
		return nil, s.fail(ctx, job, start, apperrors.NewProcessingError("failed to compare frames", err), log)
	}
	job.DroppedFrames = dedupe.Dropped(len(frames), kept)
	frames = dedupe.Select(frames, kept)

	// columns from the request or from X_COLUMNS are used as is
	keepColumns := req.XColumns != nil || strategy.CustomColumns(s.settings.Defaults.Columns)
	opts = strategy.Apply(profile, opts, frames[0].Bounds().Dx(), keepColumns)
	opts = opts.WithProgress(func(r stitcher.AlignmentResult) {
		s.publish(ctx, observer.StitchEvent{
			EventType:  observer.FrameAligned,
			JobID:      job.ID,
			FrameIndex: kept[r.Index],
			Shift:      r.Shift,
		})
	})

	result, err := stitcher.NewStitcher(opts, log).Stitch(ctx, frames)
	if err != nil {
		return nil, s.fail(ctx, job, start, remapIndex(err, kept), log)
	}

	var buf bytes.Buffer
	if err := storage.Encode(&buf, result.Image, opts.OutputFormat); err != nil {
		return nil, s.fail(ctx, job, start, err, log)
	}

	if req.Upload {
		blobName := fmt.Sprintf("%s.%s", job.ID, storage.Extension(opts.OutputFormat))
		ref, err := s.blobs.PutImage(ctx, s.settings.ResultContainer, blobName, result.Image, opts.OutputFormat)
		if err != nil {
			return nil, s.fail(ctx, job, start, apperrors.NewNetworkError("failed to upload result", err), log)
		}
		job.OutputURL = ref
	}

	job.Status = repository.JobCompleted
	job.Width = result.Width
	job.Height = result.Height
	job.Shifts = result.ShiftValues()
	job.ProcessingTimeSec = time.Since(start).Seconds()
	s.saveJob(ctx, job, log)
	s.publish(ctx, observer.StitchEvent{
		EventType:      observer.StitchCompleted,
		JobID:          job.ID,
		FrameCount:     len(frames),
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata:       map[string]interface{}{"height": result.Height, "dropped": len(job.DroppedFrames)},
	})

	return &StitchOutput{
		Response: buildResponse(job, result, kept, opts.OutputFormat, report.WarningMessages()),
		Image:    result.Image,
		Encoded:  buf.Bytes(),
	}, nil
}

// GetJob returns a recorded stitch job
func (s *stitchService) GetJob(ctx context.Context, id string) (*repository.Job, error) {
	if s.jobs == nil {
		return nil, apperrors.NewNotFoundError("job history is disabled", repository.ErrRepositoryUnavailable)
	}
	job, err := s.jobs.GetJob(ctx, id)
	if errors.Is(err, repository.ErrJobNotFound) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("job %s not found", id), err)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load job", err)
	}
	return job, nil
}

// ListJobs returns the most recent jobs first
func (s *stitchService) ListJobs(ctx context.Context, limit int) ([]*repository.Job, error) {
	if s.jobs == nil {
		return nil, nil
	}
	jobs, err := s.jobs.ListJobs(ctx, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list jobs", err)
	}
	return jobs, nil
}

// buildOptions overlays the request on the configured defaults
func (s *stitchService) buildOptions(req models.StitchRequest) (stitcher.Options, error) {
	opts := s.settings.Defaults
	opts.Columns = append([]int(nil), opts.Columns...)

	if req.HeaderHeight != nil || req.FooterHeight != nil {
		header, footer := opts.HeaderHeight, opts.FooterHeight
		if req.HeaderHeight != nil {
			header = *req.HeaderHeight
		}
		if req.FooterHeight != nil {
			footer = *req.FooterHeight
		}
		opts = opts.WithCrop(header, footer)
	}
	if req.XColumns != nil {
		opts = opts.WithColumns(req.XColumns...)
	}
	if req.Threshold != nil {
		opts = opts.WithThreshold(*req.Threshold)
	}
	if req.Workers != nil {
		opts = opts.WithWorkers(*req.Workers)
	}
	if req.MaxShift != nil {
		opts = opts.WithMaxShift(*req.MaxShift)
	}
	if req.OutputFormat != "" {
		opts.OutputFormat = req.OutputFormat
	}
	opts.OutputFormat = storage.NormalizeFormat(opts.OutputFormat)
	if !storage.SupportedFormat(opts.OutputFormat) {
		return opts, apperrors.NewValidationError(fmt.Sprintf("unsupported output format %q", req.OutputFormat), nil)
	}
	opts = opts.WithConfidence(req.Confidence)

	return opts, opts.Validate()
}

func (s *stitchService) fail(ctx context.Context, job *repository.Job, start time.Time, err error, log *logrus.Entry) error {
	job.Status = repository.JobFailed
	job.Error = err.Error()
	job.ProcessingTimeSec = time.Since(start).Seconds()

	// the request context may already be done, the record must still be written
	s.saveJob(context.WithoutCancel(ctx), job, log)
	s.publish(ctx, observer.StitchEvent{
		EventType:      observer.StitchFailed,
		JobID:          job.ID,
		ProcessingTime: time.Since(start),
		ErrorMessage:   err.Error(),
	})
	return err
}

func (s *stitchService) saveJob(ctx context.Context, job *repository.Job, log *logrus.Entry) {
	if s.jobs == nil {
		return
	}
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		log.WithError(err).Warn("Failed to record stitch job")
	}
}

func (s *stitchService) publish(ctx context.Context, event observer.StitchEvent) {
	if s.events != nil {
		s.events.NotifyObservers(ctx, event)
	}
}

// remapIndex rewrites the image index of a stitch error from the deduplicated
// sequence back to the request's frame order
func remapIndex(err error, kept []int) error {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return err
	}
	if appErr.ImageIndex >= 0 && appErr.ImageIndex < len(kept) {
		return appErr.AtImage(kept[appErr.ImageIndex])
	}
	return err
}

func buildResponse(job *repository.Job, result *stitcher.Result, kept []int, format string, warnings []string) *models.StitchResponse {
	alignments := make([]models.FrameAlignment, len(result.Shifts))
	for i, a := range result.Shifts {
		alignments[i] = models.FrameAlignment{
			Index:      kept[a.Index],
			Shift:      a.Shift,
			Deviation:  a.Deviation,
			Confidence: a.Confidence,
		}
	}
	return &models.StitchResponse{
		JobID:             job.ID,
		Timestamp:         job.CreatedAt.Format(time.RFC3339),
		ProcessingTimeSec: job.ProcessingTimeSec,
		FrameCount:        job.FrameCount,
		DroppedFrames:     job.DroppedFrames,
		Width:             result.Width,
		Height:            result.Height,
		Alignments:        alignments,
		OutputFormat:      format,
		ContentType:       storage.ContentType(format),
		OutputURL:         job.OutputURL,
		Warnings:          warnings,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
