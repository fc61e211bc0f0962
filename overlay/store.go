package overlay

import (
	"io"
	"math"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/sahib/cowstore/backend"
	"github.com/sahib/cowstore/overlay/page"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultPageSize is used when Options.PageSize is not set.
	DefaultPageSize = 1024 * 1024

	// ToEnd can be passed as length to Del() to delete until the end.
	ToEnd = math.MaxInt64
)

// Options can be passed to New()
type Options struct {
	// PageSize is the size of a single page in bytes.
	// It can not be changed after creation.
	PageSize int64
}

// Usage describes how much memory the overlay holds.
type Usage struct {
	// Pages is the number of materialized pages.
	Pages int64

	// Bytes is the memory used by those pages.
	Bytes int64
}

// Store is a copy-on-write overlay over a backend.
// Use New() to create one.
type Store struct {
	backend  backend.Backend
	pageSize int64

	// openMu makes sure only one goroutine opens the backend.
	openMu  sync.Mutex
	opened  bool
	openErr error

	// mu protects everything below.
	mu     sync.Mutex
	closed bool

	// pages holds all present pages by their index.
	// A missing key means that the page is absent.
	pages map[int64]*page.Page

	// originalSize is the size of the backend when it was opened.
	originalSize int64

	// logicalSize is the current size of the store.
	logicalSize int64
}

// New returns a store on top of `b`. No IO is done until the
// first operation or an explicit call to Open().
func New(b backend.Backend, opts Options) *Store {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Store{
		backend:  b,
		pageSize: pageSize,
		pages:    make(map[int64]*page.Page),
	}
}

// PageSize returns the page size the store was created with.
func (s *Store) PageSize() int64 {
	return s.pageSize
}

// Open opens the backend and remembers its size. It is called implicitly by
// every other operation, so calling it is only needed to check for errors
// early. Calling it again is a no-op that returns the result of the first
// call.
func (s *Store) Open() error {
	s.openMu.Lock()
	defer s.openMu.Unlock()

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return ErrClosed
	}

	if s.opened {
		return s.openErr
	}

	s.opened = true
	s.openErr = s.open()
	return s.openErr
}

func (s *Store) open() error {
	if err := s.backend.Open(); err != nil {
		return &OpenError{Err: err}
	}

	info, err := s.backend.Stat()
	if err != nil {
		return &OpenError{Err: err}
	}

	if info.Size < 0 {
		return &OpenError{Err: ErrNegativeSize}
	}

	s.mu.Lock()
	s.originalSize = info.Size
	s.logicalSize = info.Size
	s.mu.Unlock()

	log.Debugf(
		"overlay: opened backend with %s (page size %s)",
		humanize.Bytes(uint64(info.Size)),
		humanize.Bytes(uint64(s.pageSize)),
	)
	return nil
}

// Stat returns the logical size of the store.
// The backend is not asked again after Open().
func (s *Store) Stat() (backend.Info, error) {
	if err := s.Open(); err != nil {
		return backend.Info{}, err
	}

	return backend.Info{Size: s.Size()}, nil
}

// Size returns the current logical size.
// Before the store was opened it is zero.
func (s *Store) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logicalSize
}

// OriginalSize returns the size of the backend at open time.
func (s *Store) OriginalSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.originalSize
}

// Usage returns how many pages are materialized.
func (s *Store) Usage() Usage {
	s.mu.Lock()
	defer s.mu.Unlock()

	numPages := int64(len(s.pages))
	return Usage{
		Pages: numPages,
		Bytes: numPages * s.pageSize,
	}
}

// Close drops all modifications. If the backend is an io.Closer it is
// closed too. All operations after Close() return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.closed = true
	s.pages = make(map[int64]*page.Page)
	s.mu.Unlock()

	if closer, ok := s.backend.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}
