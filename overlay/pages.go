package overlay

import (
	"github.com/sahib/cowstore/overlay/page"
	"github.com/sahib/cowstore/util"
)

// materialize builds page `idx` from the backend without installing it.
// Only bytes below `origSize` are read; the rest stays zero.
func (s *Store) materialize(idx, origSize int64) (*page.Page, error) {
	lo := idx * s.pageSize
	if lo >= origSize {
		return page.New(s.pageSize), nil
	}

	hi := util.Min64(lo+s.pageSize, origSize)
	data, err := s.backend.Read(lo, hi-lo)
	if err != nil {
		return nil, &IOError{Page: idx, Err: err}
	}

	if int64(len(data)) != hi-lo {
		return nil, &IOError{Page: idx, Err: ErrShortRead}
	}

	return page.FromPrefix(data, s.pageSize), nil
}

// install puts `p` into slot `idx`, unless some other goroutine was faster.
// It returns whatever page is in the slot afterwards.
// s.mu must be held.
func (s *Store) install(idx int64, p *page.Page) *page.Page {
	if curr, ok := s.pages[idx]; ok {
		return curr
	}

	s.pages[idx] = p
	return p
}

// updatePage makes sure page `idx` is present and calls `fn` on it
// while holding s.mu. The backend is read without holding the lock.
// On error the page stays absent.
func (s *Store) updatePage(idx int64, fn func(p *page.Page)) error {
	s.mu.Lock()
	if p, ok := s.pages[idx]; ok {
		fn(p)
		s.mu.Unlock()
		return nil
	}

	origSize := s.originalSize
	s.mu.Unlock()

	fresh, err := s.materialize(idx, origSize)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fn(s.install(idx, fresh))
	return nil
}

// zeroPage zeroes [lo, hi) of page `idx`. Absent pages that lie completely
// beyond the original size are zero already and stay absent. An absent page
// that is zeroed completely is installed without reading the backend.
func (s *Store) zeroPage(idx, lo, hi int64) error {
	if lo >= hi {
		return nil
	}

	s.mu.Lock()
	if p, ok := s.pages[idx]; ok {
		p.Zero(lo, hi)
		s.mu.Unlock()
		return nil
	}

	if idx*s.pageSize >= s.originalSize {
		s.mu.Unlock()
		return nil
	}

	if lo == 0 && hi == s.pageSize {
		s.install(idx, page.New(s.pageSize))
		s.mu.Unlock()
		return nil
	}

	s.mu.Unlock()
	return s.updatePage(idx, func(p *page.Page) {
		p.Zero(lo, hi)
	})
}

// uncoveredRange shrinks [lo, hi) from both sides as long as the pages at
// the borders are present. The rest has to come from the backend.
// s.mu must be held.
func (s *Store) uncoveredRange(lo, hi int64) (int64, int64) {
	for lo < hi {
		idx := lo / s.pageSize
		if _, ok := s.pages[idx]; !ok {
			break
		}

		lo = (idx + 1) * s.pageSize
	}

	for hi > lo {
		idx := (hi - 1) / s.pageSize
		if _, ok := s.pages[idx]; !ok {
			break
		}

		hi = idx * s.pageSize
	}

	return lo, hi
}

// mergePages copies the parts of all present pages overlapping
// [off, off+len(buf)) over `buf`. s.mu must be held.
func (s *Store) mergePages(buf []byte, off int64) {
	if len(buf) == 0 {
		return
	}

	end := off + int64(len(buf))
	for idx := off / s.pageSize; idx <= (end-1)/s.pageSize; idx++ {
		p, ok := s.pages[idx]
		if !ok {
			continue
		}

		pageStart := idx * s.pageSize
		lo := util.Max64(off, pageStart)
		p.CopyTo(buf[lo-off:], lo-pageStart)
	}
}
