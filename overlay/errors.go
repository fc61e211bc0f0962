package overlay

import (
	"errors"
	"fmt"

	e "github.com/pkg/errors"
)

var (
	// ErrOutOfRange is returned when a request reaches at or past the
	// logical end of the store or uses negative offsets.
	ErrOutOfRange = errors.New("requested range exceeds store size")

	// ErrClosed is returned by all operations after Close().
	ErrClosed = errors.New("store is closed")

	// ErrShortRead is returned when a backend delivered fewer bytes than asked for.
	ErrShortRead = errors.New("backend returned less data than requested")

	// ErrNegativeSize is returned when a backend reports a negative size.
	ErrNegativeSize = errors.New("backend reported a negative size")
)

// OpenError means that the backend could not be opened or did not
// tell its size. The store is unusable after it; the error sticks.
type OpenError struct {
	Err error
}

func (oe *OpenError) Error() string {
	return fmt.Sprintf("failed to open backend: %v", oe.Err)
}

// Unwrap returns the error of the backend.
func (oe *OpenError) Unwrap() error {
	return oe.Err
}

// IOError means that a backend read failed.
// The page it was loading stays absent.
type IOError struct {
	Page int64
	Err  error
}

func (ie *IOError) Error() string {
	return fmt.Sprintf("failed to load page %d: %v", ie.Page, ie.Err)
}

// Unwrap returns the error of the backend.
func (ie *IOError) Unwrap() error {
	return ie.Err
}

func rangeError(off, n, size int64) error {
	return e.Wrapf(ErrOutOfRange, "[%d, +%d) with size %d", off, n, size)
}

// checkRange makes sure [off, off+n) lies inside [0, size).
func checkRange(off, n, size int64) error {
	if off < 0 || n < 0 || off > size || n > size-off {
		return rangeError(off, n, size)
	}

	return nil
}

// IsRangeError tells if `err` is about a request out of range.
func IsRangeError(err error) bool {
	return errors.Is(err, ErrOutOfRange)
}

// IsOpenError tells if `err` is (or wraps) an *OpenError.
func IsOpenError(err error) bool {
	var oe *OpenError
	return errors.As(err, &oe)
}

// IsIOError tells if `err` is (or wraps) an *IOError.
func IsIOError(err error) bool {
	var ie *IOError
	return errors.As(err, &ie)
}
