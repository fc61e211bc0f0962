// Package file implements a backend that reads from a file on disk.
// The file is opened read-only; it is never modified.
package file

import (
	"io"
	"os"
	"sync"

	e "github.com/pkg/errors"
	"github.com/sahib/cowstore/backend"
)

// Backend reads from a regular file.
type Backend struct {
	mu   sync.Mutex
	path string
	fd   *os.File
}

// New returns a backend for the file at `path`.
// No IO is performed on creation.
func New(path string) *Backend {
	return &Backend{path: path}
}

// Path returns the path the backend was created with.
func (b *Backend) Path() string {
	return b.path
}

// Open opens the file, if not done yet.
func (b *Backend) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fd != nil {
		return nil
	}

	fd, err := os.Open(b.path)
	if err != nil {
		return e.Wrapf(err, "file backend")
	}

	b.fd = fd
	return nil
}

func (b *Backend) handle() (*os.File, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fd == nil {
		return nil, backend.ErrNotOpen
	}

	return b.fd, nil
}

// Read reads exactly `length` bytes at `off`.
func (b *Backend) Read(off, length int64) ([]byte, error) {
	fd, err := b.handle()
	if err != nil {
		return nil, err
	}

	if off < 0 || length < 0 {
		return nil, backend.CheckBounds(off, length, 0)
	}

	buf := make([]byte, length)
	n, err := fd.ReadAt(buf, off)
	if err == io.EOF && int64(n) < length {
		return nil, e.Wrapf(backend.ErrOutOfBounds, "%s: short read of %d/%d bytes", b.path, n, length)
	}

	if err != nil && err != io.EOF {
		return nil, e.Wrapf(err, "file backend: read %s", b.path)
	}

	return buf, nil
}

// Stat returns the current size of the file.
func (b *Backend) Stat() (backend.Info, error) {
	fd, err := b.handle()
	if err != nil {
		return backend.Info{}, err
	}

	info, err := fd.Stat()
	if err != nil {
		return backend.Info{}, e.Wrapf(err, "file backend: stat %s", b.path)
	}

	return backend.Info{Size: info.Size()}, nil
}

// Close closes the underlying file descriptor.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fd == nil {
		return nil
	}

	err := b.fd.Close()
	b.fd = nil
	return err
}
