package overlay

import (
	"math"

	"github.com/sahib/cowstore/overlay/page"
	"github.com/sahib/cowstore/util"
)

// Write copies `data` to `off`. Writing past the end extends the store;
// a gap between the old end and `off` reads as zeros. Every touched page
// gets materialized first. If that fails for one page, the pages before
// it were already modified.
func (s *Store) Write(off int64, data []byte) error {
	if err := s.Open(); err != nil {
		return err
	}

	n := int64(len(data))
	if off < 0 || n > math.MaxInt64-off {
		return rangeError(off, n, s.Size())
	}

	s.mu.Lock()
	if off+n > s.logicalSize {
		s.logicalSize = off + n
	}
	s.mu.Unlock()

	for pos := int64(0); pos < n; {
		idx := (off + pos) / s.pageSize
		pageOff := (off + pos) % s.pageSize
		chunk := data[pos : pos+util.Min64(n-pos, s.pageSize-pageOff)]

		if err := s.updatePage(idx, func(p *page.Page) {
			p.Overlay(pageOff, chunk)
		}); err != nil {
			return err
		}

		pos += int64(len(chunk))
	}

	return nil
}
