// Package vfs implements a backend reading a single file
// of an arbitrary absfs.FileSystem.
package vfs

import (
	"io"
	"sync"

	"github.com/absfs/absfs"
	e "github.com/pkg/errors"
	"github.com/sahib/cowstore/backend"
)

// Backend reads the file at `path` of `fs`.
type Backend struct {
	mu   sync.Mutex
	fs   absfs.FileSystem
	path string
	fd   absfs.File
}

// New returns a new backend. No IO is performed on creation.
func New(fs absfs.FileSystem, path string) *Backend {
	return &Backend{fs: fs, path: path}
}

// Open opens the file read-only.
func (b *Backend) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fd != nil {
		return nil
	}

	fd, err := b.fs.Open(b.path)
	if err != nil {
		return e.Wrapf(err, "vfs backend: open %s", b.path)
	}

	b.fd = fd
	return nil
}

func (b *Backend) handle() (absfs.File, error) {
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
	if length == 0 {
		return buf, nil
	}

	n, err := fd.ReadAt(buf, off)
	if int64(n) < length {
		if err == nil || err == io.EOF {
			return nil, e.Wrapf(backend.ErrOutOfBounds, "%s: short read of %d/%d bytes", b.path, n, length)
		}

		return nil, e.Wrapf(err, "vfs backend: read %s", b.path)
	}

	return buf, nil
}

// Stat returns the size of the file.
func (b *Backend) Stat() (backend.Info, error) {
	fd, err := b.handle()
	if err != nil {
		return backend.Info{}, err
	}

	info, err := fd.Stat()
	if err != nil {
		return backend.Info{}, e.Wrapf(err, "vfs backend: stat %s", b.path)
	}

	return backend.Info{Size: info.Size()}, nil
}

// Close closes the file handle. The filesystem stays untouched.
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
