package overlay

import (
	"github.com/sahib/cowstore/util"
)

// Read returns the `n` bytes at `off`. Present pages take precedence over
// the backend. Reading past the logical size fails with ErrOutOfRange and
// does not touch the backend.
func (s *Store) Read(off, n int64) ([]byte, error) {
	if err := s.Open(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	size := s.logicalSize
	if err := checkRange(off, n, size); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	// Only read what the pages do not cover already.
	lo, hi := s.uncoveredRange(off, util.Min64(off+n, s.originalSize))
	s.mu.Unlock()

	buf := make([]byte, n)
	if lo < hi {
		data, err := s.backend.Read(lo, hi-lo)
		if err != nil {
			return nil, &IOError{Page: lo / s.pageSize, Err: err}
		}

		if int64(len(data)) != hi-lo {
			return nil, &IOError{Page: lo / s.pageSize, Err: ErrShortRead}
		}

		copy(buf[lo-off:], data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A concurrent delete might have cut the store in the meantime.
	if err := checkRange(off, n, s.logicalSize); err != nil {
		return nil, err
	}

	s.mergePages(buf, off)
	return buf, nil
}
