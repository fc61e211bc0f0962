package overlay

import (
	"github.com/sahib/cowstore/util"
	log "github.com/sirupsen/logrus"
)

// Del zeroes `n` bytes at `off`. If the range reaches the logical end
// (for example with n == ToEnd) the store is truncated to `off`.
//
// A range strictly inside the store only zeroes the pages it covers
// completely; partially covered pages at its borders are left as they are.
// A delete starting past the end moves the logical end to `off`;
// the gap reads as zeros.
func (s *Store) Del(off, n int64) error {
	if err := s.Open(); err != nil {
		return err
	}

	if off < 0 || n < 0 {
		return rangeError(off, n, s.Size())
	}

	size := s.Size()
	if off >= size {
		s.mu.Lock()
		if off > s.logicalSize {
			s.logicalSize = off
		}
		s.mu.Unlock()
		return nil
	}

	end := util.SaturatingAdd64(off, n)
	if end >= size {
		return s.truncate(off, size)
	}

	firstIdx := util.CeilDiv64(off, s.pageSize)
	lastIdx := end / s.pageSize
	for idx := firstIdx; idx < lastIdx; idx++ {
		if err := s.zeroPage(idx, 0, s.pageSize); err != nil {
			return err
		}
	}

	return nil
}

// truncate zeroes [off, size) and sets the logical size to `off`.
// The zeroed tail guarantees that a later extension reads zeros.
func (s *Store) truncate(off, size int64) error {
	firstIdx := off / s.pageSize
	lastIdx := (size - 1) / s.pageSize

	// Head page keeps everything before `off`:
	if err := s.zeroPage(firstIdx, off%s.pageSize, s.pageSize); err != nil {
		return err
	}

	for idx := firstIdx + 1; idx <= lastIdx; idx++ {
		if err := s.zeroPage(idx, 0, s.pageSize); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.logicalSize = off
	s.mu.Unlock()

	log.Debugf("overlay: truncated from %d to %d bytes", size, off)
	return nil
}

// Truncate sets the logical size to `size`. Growing the store appends
// zeros; shrinking it is the same as Del(size, ToEnd).
func (s *Store) Truncate(size int64) error {
	if err := s.Open(); err != nil {
		return err
	}

	if size < 0 {
		return rangeError(size, 0, s.Size())
	}

	s.mu.Lock()
	if size >= s.logicalSize {
		s.logicalSize = size
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	return s.Del(size, ToEnd)
}
