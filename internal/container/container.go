package container

import (
	"fmt"
	"net/http"

	"go-image-stitcher/internal/config"
	"go-image-stitcher/internal/factory"
	"go-image-stitcher/internal/logger"
	"go-image-stitcher/internal/observer"
	"go-image-stitcher/internal/repository"
	"go-image-stitcher/internal/service"
	"go-image-stitcher/internal/storage"
	"go-image-stitcher/internal/transport"
	"go-image-stitcher/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config          *config.Config
	imageRepository repository.ImageRepository
	jobRepository   repository.JobRepository
	events          *observer.EventPublisher
	metrics         *observer.MetricsObserver
	stitchService   service.StitchService
	handler         http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	components := factory.NewComponentFactory(factory.StorageSettings{
		FetchTimeout: cfg.ImageFetchTimeout,
		Limits: storage.DecodeLimits{
			MaxPixels: cfg.MaxFramePixels,
			MaxBytes:  cfg.MaxFrameBytes,
		},
		AzureAccount: cfg.AzureAccount,
		AzureKey:     cfg.AzureKey,
	})

	// Local files are never exposed over HTTP
	storageTypes := []factory.StorageType{factory.HTTPStorage}
	schemes := []string{"http", "https"}
	if cfg.AzureEnabled() {
		storageTypes = append(storageTypes, factory.AzureStorage)
		schemes = append(schemes, storage.BlobScheme)
	}
	fetchers, err := components.Fetchers(storageTypes...)
	if err != nil {
		return nil, err
	}

	var blobs storage.BlobStorage
	if fetchers.Blob != nil {
		blobs, _ = fetchers.Blob.(storage.BlobStorage)
	}

	var jobs repository.JobRepository
	if cfg.JobDBPath != "" {
		sqliteJobs, err := repository.NewSQLiteJobRepository(cfg.JobDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open job history: %w", err)
		}
		jobs = sqliteJobs
	}

	// Build dependency graph
	imageRepository := repository.NewImageRepository(fetchers)

	events := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	validator := validation.NewURLValidatorWithOptions(schemes, nil).WithMaxFrames(cfg.MaxFrames)

	frameLimits := validation.DefaultFrameThresholds()
	frameLimits.MaxTotalPixels = cfg.MaxFramePixels
	stitchService := service.NewStitchService(imageRepository, jobs, blobs, events, validator, service.Settings{
		Defaults:        cfg.StitchOptions(),
		Strategy:        cfg.Strategy,
		DedupeDistance:  -1,
		StitchTimeout:   cfg.StitchTimeout,
		ResultContainer: cfg.AzureResultContainer,
		FrameLimits:     frameLimits,
	})
	handler := transport.NewHandler(stitchService, metrics, cfg)

	return &Container{
		config:          cfg,
		imageRepository: imageRepository,
		jobRepository:   jobs,
		events:          events,
		metrics:         metrics,
		stitchService:   stitchService,
		handler:         handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// StitchService returns the stitch service
func (c *Container) StitchService() service.StitchService {
	return c.stitchService
}

// Close flushes pending events and releases the job database
func (c *Container) Close() error {
	c.events.Flush()
	if c.jobRepository != nil {
		return c.jobRepository.Close()
	}
	return nil
}
