// Package storage publishes run artifacts (report, summary, archive) to an
// object store: a local directory or Tencent Cloud COS.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/pairwise-ratings/pkg/config"
	pkgerrors "github.com/pairwise-ratings/pkg/errors"
)

// Storage defines the object storage operations the pipeline needs.
type Storage interface {
	// Upload stores the contents of reader under key.
	Upload(ctx context.Context, key string, reader io.Reader) error

	// UploadFile stores a local file under key.
	UploadFile(ctx context.Context, key string, localPath string) error

	// Download opens the object at key. The caller closes the reader.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object at key. Missing objects are not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns where the object at key can be fetched from.
	GetURL(key string) string
}

// StorageType represents the type of storage backend.
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeCOS   StorageType = "cos"
)

// NewStorage creates a Storage for the configured backend.
func NewStorage(cfg *config.StorageConfig) (Storage, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	switch StorageType(cfg.Type) {
	case StorageTypeCOS:
		return NewCOSStorage(&COSConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
		})
	default:
		return NewLocalStorage(cfg.LocalPath)
	}
}

// ValidateConfig validates the storage configuration.
func ValidateConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return storageError("storage config is nil", nil)
	}

	switch StorageType(cfg.Type) {
	case "", StorageTypeLocal:
		if cfg.LocalPath == "" {
			return storageError("local storage path is required", nil)
		}
	case StorageTypeCOS:
		if cfg.Bucket == "" || cfg.Region == "" {
			return storageError("COS bucket and region are required", nil)
		}
		if cfg.SecretID == "" || cfg.SecretKey == "" {
			return storageError("COS credentials are required", nil)
		}
	default:
		return storageError(fmt.Sprintf("unsupported storage type: %s", cfg.Type), nil)
	}
	return nil
}

// ArtifactKey returns the object key of a run artifact:
// <prefix>/<runID>/<name>.
func ArtifactKey(prefix, runID, name string) string {
	return path.Join(strings.Trim(prefix, "/"), runID, path.Base(name))
}

// PublishFiles uploads each local file under ArtifactKey(prefix, runID, base)
// and returns the resulting URLs in the order given.
func PublishFiles(ctx context.Context, st Storage, prefix, runID string, files []string) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, f := range files {
		key := ArtifactKey(prefix, runID, f)
		if err := st.UploadFile(ctx, key, f); err != nil {
			return urls, err
		}
		urls = append(urls, st.GetURL(key))
	}
	return urls, nil
}

func storageError(msg string, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeStorageError, msg, err)
}
