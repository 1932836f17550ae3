// Package ingest turns an input file of colon-separated game records into
// graph builder calls.
package ingest

import (
	"os"

	pkgerrors "github.com/pairwise-ratings/pkg/errors"
)

// Buffer is a read-only view of a whole input file. The bytes stay valid
// until Close.
type Buffer struct {
	path   string
	data   []byte
	mapped bool
	closed bool
}

// Open returns the contents of path. Regular files are memory-mapped where
// the platform supports it. Missing, unreadable or non-regular paths yield
// a file access error.
func Open(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.FileAccess(path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, pkgerrors.FileAccess(path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, pkgerrors.FileAccess(path, os.ErrInvalid)
	}
	if info.Size() == 0 {
		return &Buffer{path: path}, nil
	}

	data, mapped, err := mapFile(f, info.Size())
	if err != nil {
		return nil, pkgerrors.FileAccess(path, err)
	}
	return &Buffer{path: path, data: data, mapped: mapped}, nil
}

// Bytes returns the file contents. The slice must not be modified.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the file size in bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Path returns the path the buffer was opened from.
func (b *Buffer) Path() string {
	return b.path
}

// Mapped reports whether the contents are memory-mapped.
func (b *Buffer) Mapped() bool {
	return b.mapped
}

// Close releases the mapping. It is safe to call more than once.
func (b *Buffer) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	data := b.data
	b.data = nil
	if b.mapped {
		return unmapFile(data)
	}
	return nil
}
