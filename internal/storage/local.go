package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage stores objects as files under a base directory.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if basePath == "" {
		basePath = "./storage"
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, storageError("failed to create storage directory", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Upload writes reader to the file for key, replacing it atomically.
func (s *LocalStorage) Upload(ctx context.Context, key string, reader io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return storageError("failed to create directory", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return storageError("failed to create file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return storageError("failed to write file", err)
	}
	if err := tmp.Close(); err != nil {
		return storageError("failed to write file", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return storageError("failed to store file", err)
	}
	return nil
}

// UploadFile copies a local file to key.
func (s *LocalStorage) UploadFile(ctx context.Context, key string, localPath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return storageError("failed to open source file", err)
	}
	defer src.Close()

	return s.Upload(ctx, key, src)
}

// Download opens the file for key.
func (s *LocalStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storageError(fmt.Sprintf("object not found: %s", key), err)
		}
		return nil, storageError("failed to open file", err)
	}
	return file, nil
}

// Delete removes the file for key.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return storageError("failed to delete file", err)
	}
	return nil
}

// Exists reports whether the file for key exists.
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fullPath, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, storageError("failed to check file existence", err)
	}
	return true, nil
}

// GetURL returns the filesystem path of key.
func (s *LocalStorage) GetURL(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

// BasePath returns the storage root.
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

// resolve maps key below the base directory and rejects keys escaping it.
func (s *LocalStorage) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", storageError(fmt.Sprintf("invalid object key: %q", key), nil)
	}
	return filepath.Join(s.basePath, clean), nil
}
