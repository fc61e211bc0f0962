// Package backend defines the contract between an overlay and the store it
// shadows. A backend is only ever read from; implementations live in the
// sub packages of this directory.
package backend

import (
	"errors"

	e "github.com/pkg/errors"
)

var (
	// ErrOutOfBounds is returned when a read reaches past the end of a backend.
	ErrOutOfBounds = errors.New("read reaches past end of backend")

	// ErrNotOpen is returned when a backend is used before Open() was called.
	ErrNotOpen = errors.New("backend is not open")
)

// Info is what Stat() returns.
type Info struct {
	// Size is the number of addressable bytes.
	Size int64
}

// Backend is a read-only random access byte store.
type Backend interface {
	// Open prepares the backend for reading.
	// Calling it several times must be harmless.
	Open() error

	// Read returns exactly `length` bytes starting at `off`.
	// Reading past the end is an error.
	Read(off, length int64) ([]byte, error)

	// Stat returns information about the backend,
	// most importantly its size.
	Stat() (Info, error)
}

// CheckBounds returns ErrOutOfBounds (with some context) if [off, off+length)
// does not fit into a store of `size` bytes.
func CheckBounds(off, length, size int64) error {
	if off < 0 || length < 0 || off > size || length > size-off {
		return e.Wrapf(ErrOutOfBounds, "[%d, +%d) of %d bytes", off, length, size)
	}

	return nil
}

// IsOutOfBounds tells if `err` was caused by a read past the end.
func IsOutOfBounds(err error) bool {
	return errors.Is(err, ErrOutOfBounds)
}
