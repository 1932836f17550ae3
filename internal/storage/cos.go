package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/tencentyun/cos-go-sdk-v5"
)

// COSConfig holds COS-specific configuration.
type COSConfig struct {
	Bucket    string
	Region    string
	SecretID  string
	SecretKey string
	Domain    string // e.g., "myqcloud.com"
	Scheme    string // e.g., "https" or "http"

	// BucketURL overrides the URL derived from bucket, region and domain.
	// Used for private endpoints.
	BucketURL string
}

// COSStorage stores objects in a Tencent Cloud COS bucket.
type COSStorage struct {
	client    *cos.Client
	bucketURL *url.URL
}

// NewCOSStorage creates a COS client for the configured bucket.
func NewCOSStorage(cfg *COSConfig) (*COSStorage, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, storageError("bucket and region are required for COS storage", nil)
	}
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, storageError("credentials are required for COS storage", nil)
	}

	domain := cfg.Domain
	if domain == "" {
		domain = "myqcloud.com"
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}

	raw := cfg.BucketURL
	if raw == "" {
		raw = fmt.Sprintf("%s://%s.cos.%s.%s", scheme, cfg.Bucket, cfg.Region, domain)
	}
	bucketURL, err := url.Parse(raw)
	if err != nil {
		return nil, storageError("failed to parse bucket URL", err)
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: bucketURL}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
		},
	})

	return &COSStorage{client: client, bucketURL: bucketURL}, nil
}

// contentType maps artifact extensions to the type COS serves them with.
func contentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".json.gz"), path.Ext(key) == ".gz":
		return "application/gzip"
	case path.Ext(key) == ".json":
		return "application/json"
	case path.Ext(key) == ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

func putOptions(key string) *cos.ObjectPutOptions {
	return &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{ContentType: contentType(key)},
	}
}

// Upload stores the contents of reader under key.
func (s *COSStorage) Upload(ctx context.Context, key string, reader io.Reader) error {
	if _, err := s.client.Object.Put(ctx, key, reader, putOptions(key)); err != nil {
		return storageError(fmt.Sprintf("failed to upload %s to COS", key), err)
	}
	return nil
}

// UploadFile stores a local file under key.
func (s *COSStorage) UploadFile(ctx context.Context, key string, localPath string) error {
	if _, err := s.client.Object.PutFromFile(ctx, key, localPath, putOptions(key)); err != nil {
		return storageError(fmt.Sprintf("failed to upload %s to COS", localPath), err)
	}
	return nil
}

// Download opens the object at key.
func (s *COSStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.Object.Get(ctx, key, nil)
	if err != nil {
		return nil, storageError(fmt.Sprintf("failed to download %s from COS", key), err)
	}
	return resp.Body, nil
}

// Delete removes the object at key. A missing object is not an error.
func (s *COSStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.client.Object.Delete(ctx, key, nil); err != nil && !cos.IsNotFoundError(err) {
		return storageError(fmt.Sprintf("failed to delete %s from COS", key), err)
	}
	return nil
}

// Exists reports whether an object is stored under key.
func (s *COSStorage) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.Object.IsExist(ctx, key)
	if err != nil {
		return false, storageError("failed to check existence in COS", err)
	}
	return ok, nil
}

// GetURL returns the object URL for key.
func (s *COSStorage) GetURL(key string) string {
	return strings.TrimSuffix(s.bucketURL.String(), "/") + "/" + strings.TrimPrefix(key, "/")
}
