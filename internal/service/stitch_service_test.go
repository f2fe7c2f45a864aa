package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	apperrors "go-image-stitcher/internal/errors"
	"go-image-stitcher/internal/observer"
	"go-image-stitcher/internal/repository"
	"go-image-stitcher/internal/stitcher"
	"go-image-stitcher/pkg/models"
	"go-image-stitcher/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

type fixture struct {
	service StitchService
	jobs    *repository.SQLiteJobRepository
	events  *observer.EventPublisher
	metrics *observer.MetricsObserver
	blobs   *memoryBlobs
}

func newFixture(t *testing.T, frames []image.Image, withBlobs bool) (*fixture, []string) {
	t.Helper()
	images, urls := newFrameRepository(frames)

	jobs, err := repository.NewSQLiteJobRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { jobs.Close() })

	events := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	events.Subscribe(metrics)

	f := &fixture{jobs: jobs, events: events, metrics: metrics}
	settings := Settings{
		Defaults:        stitcher.DefaultOptions().WithCrop(0, 0).WithColumns(10, 50, 90),
		DedupeDistance:  -1,
		StitchTimeout:   10 * time.Second,
		ResultContainer: "stitched",
	}
	if withBlobs {
		f.blobs = &memoryBlobs{}
		f.service = NewStitchService(images, jobs, f.blobs, events, nil, settings)
	} else {
		f.service = NewStitchService(images, jobs, nil, events, nil, settings)
	}
	return f, urls
}

func TestStitch_ComposesFrames(t *testing.T) {
	frames := scrollFrames(100, 60, 5, 3, 7)
	f, urls := newFixture(t, frames, false)

	out, err := f.service.Stitch(context.Background(), models.StitchRequest{URLs: urls})
	require.NoError(t, err)

	resp := out.Response
	assert.Equal(t, 100, resp.Width)
	assert.Equal(t, 70, resp.Height)
	assert.Equal(t, "png", resp.OutputFormat)
	assert.Equal(t, "image/png", resp.ContentType)
	assert.Empty(t, resp.Warnings)
	require.Len(t, resp.Alignments, 2)
	assert.Equal(t, models.FrameAlignment{Index: 1, Shift: 5}, resp.Alignments[0])
	assert.Equal(t, models.FrameAlignment{Index: 2, Shift: 5}, resp.Alignments[1])

	decoded, err := png.Decode(bytes.NewReader(out.Encoded))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 70), decoded.Bounds())

	job, err := f.service.GetJob(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, repository.JobCompleted, job.Status)
	assert.Equal(t, []int{5, 5}, job.Shifts)
	assert.Equal(t, 70, job.Height)

	f.events.Flush()
	metrics := f.metrics.GetMetrics()
	assert.Equal(t, int64(1), metrics["successful_stitches"])
	assert.Equal(t, int64(2), metrics["frames_aligned"])
}

func TestStitch_DropsDuplicateFrames(t *testing.T) {
	frames := scrollFrames(100, 60, 5, 3, 11)
	frames = []image.Image{frames[0], frames[0], frames[1], frames[2]}
	f, urls := newFixture(t, frames, false)

	out, err := f.service.Stitch(context.Background(), models.StitchRequest{URLs: urls, DedupeDistance: intPtr(0)})
	require.NoError(t, err)

	assert.Equal(t, []int{1}, out.Response.DroppedFrames)
	assert.Equal(t, 4, out.Response.FrameCount)
	assert.Equal(t, 70, out.Response.Height)
	require.Len(t, out.Response.Alignments, 2)
	assert.Equal(t, 2, out.Response.Alignments[0].Index)
	assert.Equal(t, 3, out.Response.Alignments[1].Index)
}

func TestStitch_ErrorIndexRefersToRequestOrder(t *testing.T) {
	frames := scrollFrames(100, 60, 5, 2, 3)
	narrow := scrollFrames(80, 60, 5, 1, 4)[0]
	f, urls := newFixture(t, []image.Image{frames[0], frames[0], narrow}, false)

	_, err := f.service.Stitch(context.Background(), models.StitchRequest{URLs: urls, DedupeDistance: intPtr(0)})
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok, "expected AppError, got %T", err)
	assert.Equal(t, apperrors.ErrorTypeShapeMismatch, appErr.Type)
	assert.Equal(t, 2, appErr.ImageIndex)
}

func TestStitch_MissingFrameIsRecorded(t *testing.T) {
	frames := scrollFrames(100, 60, 5, 2, 5)
	f, urls := newFixture(t, frames, false)
	urls = append(urls, "https://frames.example.com/missing.png")

	_, err := f.service.Stitch(context.Background(), models.StitchRequest{URLs: urls})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInputNotFound))
	assert.Equal(t, 404, apperrors.GetStatusCode(err))

	jobs, err := f.service.ListJobs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, repository.JobFailed, jobs[0].Status)
	assert.True(t, strings.Contains(jobs[0].Error, "missing.png"))

	f.events.Flush()
	assert.Equal(t, int64(1), f.metrics.GetMetrics()["failed_stitches"])
}

func TestStitch_RejectsOversizedFrames(t *testing.T) {
	frames := scrollFrames(100, 60, 5, 2, 13)
	images, urls := newFrameRepository(frames)
	jobs, err := repository.NewSQLiteJobRepository(":memory:")
	require.NoError(t, err)
	defer jobs.Close()

	svc := NewStitchService(images, jobs, nil, nil, nil, Settings{
		Defaults:       stitcher.DefaultOptions().WithCrop(0, 0).WithColumns(10, 50, 90),
		DedupeDistance: -1,
		FrameLimits:    validation.FrameThresholds{MinWidth: 1, MinHeight: 1, MaxTotalPixels: 5000},
	})

	_, err = svc.Stitch(context.Background(), models.StitchRequest{URLs: urls})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
	assert.Equal(t, 0, appErr.ImageIndex)

	recorded, err := svc.ListJobs(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, repository.JobFailed, recorded[0].Status)
}

func TestStitch_AdaptiveStrategyKeepsConfiguredColumns(t *testing.T) {
	frames := scrollFrames(100, 60, 5, 3, 17)

	tests := []struct {
		name     string
		defaults stitcher.Options
		wantErr  apperrors.ErrorType
	}{
		// default columns are scaled onto the 100px frames
		{"default columns scaled", stitcher.DefaultOptions().WithCrop(0, 0), ""},
		// configured columns are used as is, so 1000 is out of range
		{"configured columns kept", stitcher.DefaultOptions().WithCrop(0, 0).WithColumns(10, 50, 1000), apperrors.ErrorTypeColumnOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images, urls := newFrameRepository(frames)
			svc := NewStitchService(images, nil, nil, nil, nil, Settings{
				Defaults:       tt.defaults,
				Strategy:       "adaptive",
				DedupeDistance: -1,
			})

			out, err := svc.Stitch(context.Background(), models.StitchRequest{URLs: urls})
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, 70, out.Response.Height)
				return
			}
			assert.True(t, apperrors.IsType(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestStitch_UploadsResult(t *testing.T) {
	frames := scrollFrames(100, 60, 5, 2, 9)
	f, urls := newFixture(t, frames, true)

	out, err := f.service.Stitch(context.Background(), models.StitchRequest{
		URLs:         urls,
		OutputFormat: "jpg",
		Upload:       true,
	})
	require.NoError(t, err)

	assert.Equal(t, "jpeg", out.Response.OutputFormat)
	assert.Equal(t, "azblob://stitched/"+out.Response.JobID+".jpg", out.Response.OutputURL)

	uploaded, err := f.blobs.FetchImage(context.Background(), out.Response.OutputURL)
	require.NoError(t, err)
	assert.Equal(t, 65, uploaded.Bounds().Dy())
}

func TestStitch_RequestValidation(t *testing.T) {
	frames := scrollFrames(100, 60, 5, 2, 1)
	f, urls := newFixture(t, frames, false)

	tests := []struct {
		name string
		req  models.StitchRequest
		want apperrors.ErrorType
	}{
		{"no urls", models.StitchRequest{}, apperrors.ErrorTypeValidation},
		{"bad scheme", models.StitchRequest{URLs: []string{"ftp://x/y.png"}}, apperrors.ErrorTypeValidation},
		{"unknown format", models.StitchRequest{URLs: urls, OutputFormat: "gif"}, apperrors.ErrorTypeValidation},
		{"upload without storage", models.StitchRequest{URLs: urls, Upload: true}, apperrors.ErrorTypeValidation},
		{"unknown strategy", models.StitchRequest{URLs: urls, Strategy: "panorama"}, apperrors.ErrorTypeValidation},
		{"negative header", models.StitchRequest{URLs: urls, HeaderHeight: intPtr(-1)}, apperrors.ErrorTypeValidation},
		{"crop too large", models.StitchRequest{URLs: urls, HeaderHeight: intPtr(30), FooterHeight: intPtr(30)}, apperrors.ErrorTypeInvalidCrop},
		{"column outside frame", models.StitchRequest{URLs: urls, XColumns: []int{150}}, apperrors.ErrorTypeColumnOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Stitch(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.want), "got %v", err)
		})
	}
}

func TestStitch_ConfidenceAndParallelSearch(t *testing.T) {
	frames := scrollFrames(100, 60, 5, 3, 13)
	f, urls := newFixture(t, frames, false)

	out, err := f.service.Stitch(context.Background(), models.StitchRequest{
		URLs:       urls,
		Workers:    intPtr(4),
		Confidence: true,
	})
	require.NoError(t, err)
	for _, a := range out.Response.Alignments {
		assert.Equal(t, 5, a.Shift)
		assert.Greater(t, a.Confidence, 0.0)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	f, _ := newFixture(t, nil, false)

	_, err := f.service.GetJob(context.Background(), "nope")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	noHistory := NewStitchService(&frameRepository{}, nil, nil, nil, nil, Settings{Defaults: stitcher.DefaultOptions()})
	_, err = noHistory.GetJob(context.Background(), "nope")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}
