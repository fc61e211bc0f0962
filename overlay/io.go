package overlay

import (
	"io"

	"github.com/sahib/cowstore/util"
)

// ReadAt implements io.ReaderAt. Reads that reach the logical end
// return the available bytes together with io.EOF.
func (s *Store) ReadAt(buf []byte, off int64) (int, error) {
	if err := s.Open(); err != nil {
		return 0, err
	}

	if off < 0 {
		return 0, rangeError(off, int64(len(buf)), s.Size())
	}

	size := s.Size()
	if off >= size {
		return 0, io.EOF
	}

	n := util.Min64(int64(len(buf)), size-off)
	data, err := s.Read(off, n)
	if err != nil {
		return 0, err
	}

	copy(buf, data)
	if n < int64(len(buf)) {
		return int(n), io.EOF
	}

	return int(n), nil
}

// WriteAt implements io.WriterAt.
func (s *Store) WriteAt(buf []byte, off int64) (int, error) {
	if err := s.Write(off, buf); err != nil {
		return 0, err
	}

	return len(buf), nil
}

// NewReader returns a reader over the current logical range.
// Later size changes are not seen by it.
func (s *Store) NewReader() (*io.SectionReader, error) {
	info, err := s.Stat()
	if err != nil {
		return nil, err
	}

	return io.NewSectionReader(s, 0, info.Size), nil
}

// WriteTo implements io.WriterTo by writing the whole store
// page by page to `w`.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	info, err := s.Stat()
	if err != nil {
		return 0, err
	}

	written := int64(0)
	for written < info.Size {
		data, err := s.Read(written, util.Min64(s.pageSize, info.Size-written))
		if err != nil {
			return written, err
		}

		n, err := w.Write(data)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}

	return written, nil
}
