// Package writer serializes run artifacts as JSON, optionally gzipped.
package writer

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// JSONWriter writes values of T as JSON.
type JSONWriter[T any] struct {
	// Indent is the per-level indentation; empty means compact output.
	Indent string
}

// NewJSONWriter creates a compact JSON writer.
func NewJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{}
}

// NewPrettyJSONWriter creates an indenting JSON writer.
func NewPrettyJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Indent: "  "}
}

// Write encodes data to writer.
func (w *JSONWriter[T]) Write(data T, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	if w.Indent != "" {
		encoder.SetIndent("", w.Indent)
	}
	return encoder.Encode(data)
}

// WriteToFile replaces path with the encoded data.
func (w *JSONWriter[T]) WriteToFile(data T, path string) error {
	return replaceFile(path, func(f io.Writer) error {
		return w.Write(data, f)
	})
}

// GzipWriter writes values of T as gzipped JSON.
type GzipWriter[T any] struct {
	// CompressionLevel is the gzip level (1-9, or gzip.DefaultCompression).
	CompressionLevel int
}

// NewGzipWriter creates a gzip writer with default compression.
func NewGzipWriter[T any]() *GzipWriter[T] {
	return &GzipWriter[T]{CompressionLevel: gzip.DefaultCompression}
}

// Write encodes data to writer through gzip.
func (w *GzipWriter[T]) Write(data T, writer io.Writer) error {
	_, err := w.write(data, writer)
	return err
}

func (w *GzipWriter[T]) write(data T, writer io.Writer) (int64, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal data: %w", err)
	}

	gz, err := gzip.NewWriterLevel(writer, w.CompressionLevel)
	if err != nil {
		return 0, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if _, err := gz.Write(payload); err != nil {
		gz.Close()
		return 0, fmt.Errorf("failed to write gzip data: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return int64(len(payload)), nil
}

// WriteResult describes a written gzip file.
type WriteResult struct {
	JSONSize       int64
	CompressedSize int64
}

// Ratio returns compressed size over JSON size, 0 for empty payloads.
func (r WriteResult) Ratio() float64 {
	if r.JSONSize == 0 {
		return 0
	}
	return float64(r.CompressedSize) / float64(r.JSONSize)
}

// WriteToFile replaces path with the gzipped data and reports its sizes.
func (w *GzipWriter[T]) WriteToFile(data T, path string) (*WriteResult, error) {
	var jsonSize int64
	err := replaceFile(path, func(f io.Writer) error {
		n, err := w.write(data, f)
		jsonSize = n
		return err
	})
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	return &WriteResult{JSONSize: jsonSize, CompressedSize: info.Size()}, nil
}

// replaceFile writes through a temporary file in the target directory and
// renames it over path, so readers never observe a partial file.
func replaceFile(path string, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
