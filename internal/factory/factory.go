package factory

import (
	"fmt"
	"time"

	"go-image-stitcher/internal/repository"
	"go-image-stitcher/internal/storage"
	"go-image-stitcher/internal/strategy"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// HTTPStorage for HTTP-based image fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// LocalStorage for local file system
	LocalStorage StorageType = "local"
)

// StorageSettings carries what the storage backends need to be built
type StorageSettings struct {
	FetchTimeout time.Duration
	AzureAccount string
	AzureKey     string
	LocalRoot    string

	// Limits bounds every decoded frame, zero value means storage defaults
	Limits storage.DecodeLimits
}

func (s StorageSettings) decodeLimits() storage.DecodeLimits {
	if s.Limits == (storage.DecodeLimits{}) {
		return storage.DefaultDecodeLimits()
	}
	return s.Limits
}

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageFetcher, error)
}

// StrategyFactory creates stitch strategies
type StrategyFactory interface {
	CreateStrategy(name string) (strategy.StitchStrategy, error)
}

// storageFactory implements StorageFactory
type storageFactory struct {
	settings StorageSettings
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(settings StorageSettings) StorageFactory {
	return &storageFactory{settings: settings}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageFetcher, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPImageFetcher(f.settings.FetchTimeout).WithLimits(f.settings.decodeLimits()), nil
	case AzureStorage:
		if f.settings.AzureAccount == "" || f.settings.AzureKey == "" {
			return nil, fmt.Errorf("azure storage requires an account name and key")
		}
		return storage.NewAzureStorageWithLimits(f.settings.AzureAccount, f.settings.AzureKey, f.settings.decodeLimits())
	case LocalStorage:
		return storage.NewLocalImageFetcher(f.settings.LocalRoot).WithLimits(f.settings.decodeLimits()), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// strategyFactory implements StrategyFactory
type strategyFactory struct{}

// NewStrategyFactory creates a new strategy factory
func NewStrategyFactory() StrategyFactory {
	return &strategyFactory{}
}

// CreateStrategy creates a stitch strategy by name
func (f *strategyFactory) CreateStrategy(name string) (strategy.StitchStrategy, error) {
	return strategy.ForName(name)
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	StorageFactory  StorageFactory
	StrategyFactory StrategyFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(settings StorageSettings) *ComponentFactory {
	return &ComponentFactory{
		StorageFactory:  NewStorageFactory(settings),
		StrategyFactory: NewStrategyFactory(),
	}
}

// Fetchers builds the repository backends for the requested storage types.
// A type that fails to build is returned as an error, omitted types stay nil.
func (c *ComponentFactory) Fetchers(types ...StorageType) (repository.Fetchers, error) {
	var fetchers repository.Fetchers
	for _, t := range types {
		fetcher, err := c.StorageFactory.CreateStorage(t)
		if err != nil {
			return repository.Fetchers{}, fmt.Errorf("failed to create %s storage: %w", t, err)
		}
		switch t {
		case HTTPStorage:
			fetchers.HTTP = fetcher
		case AzureStorage:
			fetchers.Blob = fetcher
		case LocalStorage:
			fetchers.Local = fetcher
		}
	}
	return fetchers, nil
}
