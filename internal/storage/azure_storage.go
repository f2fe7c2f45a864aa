package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// BlobScheme prefixes blob references: azblob://<container>/<blob path>
const BlobScheme = "azblob"

type BlobStorage interface {
	ImageFetcher
	PutImage(ctx context.Context, container, blobName string, img image.Image, format string) (string, error)
}

// ErrBlobNotFound is returned for references to blobs that do not exist
type ErrBlobNotFound struct {
	Container string
	Blob      string
}

func (e *ErrBlobNotFound) Error() string {
	return fmt.Sprintf("blob %s/%s not found", e.Container, e.Blob)
}

type azureStorage struct {
	client *azblob.Client
	limits DecodeLimits
}

// NewAzureStorage creates blob storage with the default decode limits
func NewAzureStorage(accountName string, accountKey string) (BlobStorage, error) {
	return NewAzureStorageWithLimits(accountName, accountKey, DefaultDecodeLimits())
}

// NewAzureStorageWithLimits creates blob storage applying limits to every download
func NewAzureStorageWithLimits(accountName string, accountKey string, limits DecodeLimits) (BlobStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return &azureStorage{client: client, limits: limits}, nil
}

// ParseBlobRef splits azblob://container/path/to/blob into its container and blob name
func ParseBlobRef(ref string) (string, string, error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob reference: %w", err)
	}
	if parsed.Scheme != BlobScheme {
		return "", "", fmt.Errorf("blob reference must use %s:// (got %q)", BlobScheme, parsed.Scheme)
	}
	blobName := strings.TrimPrefix(parsed.Path, "/")
	if parsed.Host == "" || blobName == "" {
		return "", "", fmt.Errorf("blob reference must name a container and a blob: %q", ref)
	}
	return parsed.Host, blobName, nil
}

// FetchImage downloads and decodes an azblob:// reference
func (s *azureStorage) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	containerName, blobName, err := ParseBlobRef(ref)
	if err != nil {
		return nil, err
	}

	downloadResponse, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, &ErrBlobNotFound{Container: containerName, Blob: blobName}
		}
		return nil, fmt.Errorf("download failed: %w", err)
	}

	retryReader := downloadResponse.NewRetryReader(ctx, &azblob.RetryReaderOptions{MaxRetries: 3})
	defer retryReader.Close()

	img, _, err := DecodeWithLimits(retryReader, s.limits)
	return img, err
}

// PutImage encodes img and uploads it, returning the azblob:// reference
func (s *azureStorage) PutImage(ctx context.Context, containerName, blobName string, img image.Image, format string) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, format); err != nil {
		return "", err
	}

	_, err := s.client.UploadBuffer(ctx, containerName, blobName, buf.Bytes(), &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr(ContentType(format))},
	})
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return fmt.Sprintf("%s://%s/%s", BlobScheme, containerName, blobName), nil
}
