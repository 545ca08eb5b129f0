// Package storage holds original invoice documents in Azure Blob Storage.
// The import pipeline never inspects blob bytes, only metadata and keys.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrEmptyKey   = errors.New("blob key must not be empty")
	ErrInvalidKey = errors.New("blob key must not contain path traversal")
)

// Store is the content store consumed by the staging and import layers.
//
//go:generate mockgen -source=storage.go -destination=store_mock.go -package=storage
type Store interface {
	EnsureContainer(ctx context.Context) error
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// SignedURL returns a read-only URL for the blob, valid for the given duration.
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type azure struct {
	client    *azblob.Client
	container string
}

func New(connectionString, container string) (Store, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	return &azure{client: client, container: container}, nil
}

// EnsureContainer creates the configured container if it does not exist yet.
func (a *azure) EnsureContainer(ctx context.Context) error {
	_, err := a.client.CreateContainer(ctx, a.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("creating container %s: %w", a.container, err)
	}

	return nil
}

func (a *azure) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	opts := &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
	}

	if _, err := a.client.UploadStream(ctx, a.container, key, r, opts); err != nil {
		return fmt.Errorf("uploading blob %s: %w", key, err)
	}

	return nil
}

func (a *azure) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	resp, err := a.client.DownloadStream(ctx, a.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("downloading blob %s: %w", key, err)
	}

	return resp.Body, nil
}

func (a *azure) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if _, err := a.client.DeleteBlob(ctx, a.container, key, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return ErrNotFound
		}

		return fmt.Errorf("deleting blob %s: %w", key, err)
	}

	return nil
}

func (a *azure) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	blobClient := a.client.
		ServiceClient().
		NewContainerClient(a.container).
		NewBlobClient(key)

	if _, err := blobClient.GetProperties(ctx, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("checking blob %s: %w", key, err)
	}

	return true, nil
}

func (a *azure) SignedURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	blobClient := a.client.
		ServiceClient().
		NewContainerClient(a.container).
		NewBlobClient(key)

	url, err := blobClient.GetSASURL(
		sas.BlobPermissions{Read: true},
		time.Now().UTC().Add(expiry),
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("signing blob url %s: %w", key, err)
	}

	return url, nil
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	if strings.Contains(key, "..") {
		return ErrInvalidKey
	}

	return nil
}
