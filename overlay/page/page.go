// Package page implements the fixed size buffer that backs a single
// materialized page of an overlay.
package page

// NOTE: All offsets in here are relative to the page start.

import "fmt"

// Page is a single materialized page.
// It is authoritative for its whole range, i.e. every byte in Data
// is the current content of the store at that position.
type Page struct {
	Data []byte
}

// New allocates a zero filled page of `size` bytes.
func New(size int64) *Page {
	return &Page{Data: make([]byte, size)}
}

// FromPrefix allocates a page of `size` bytes whose start is a copy of
// `prefix`. The rest of the page is zero.
func FromPrefix(prefix []byte, size int64) *Page {
	p := New(size)
	p.Overlay(0, prefix)
	return p
}

func (p *Page) String() string {
	return fmt.Sprintf("<page %p size=%d>", p.Data, len(p.Data))
}

// Size returns the number of bytes in the page.
func (p *Page) Size() int64 {
	return int64(len(p.Data))
}

func (p *Page) checkRange(lo, hi int64) {
	if lo < 0 || hi < lo || hi > int64(len(p.Data)) {
		// this is a programmer error:
		panic(fmt.Sprintf("range [%d, %d) is outside of page with size %d", lo, hi, len(p.Data)))
	}
}

// Overlay copies `write` into the page at `off`.
// off + len(write) may not exceed the page size.
func (p *Page) Overlay(off int64, write []byte) {
	if len(write) == 0 {
		return
	}

	hi := off + int64(len(write))
	p.checkRange(off, hi)
	copy(p.Data[off:hi], write)
}

// Zero fills [lo, hi) of the page with zeros.
func (p *Page) Zero(lo, hi int64) {
	p.checkRange(lo, hi)
	memzero(p.Data[lo:hi])
}

// CopyTo copies the page content starting at `off` into `dst`.
// It returns the number of copied bytes, which is limited
// by both the page end and len(dst).
func (p *Page) CopyTo(dst []byte, off int64) int {
	p.checkRange(off, off)
	return copy(dst, p.Data[off:])
}

func memzero(buf []byte) {
	// The compiler turns this loop into a memclr.
	for idx := range buf {
		buf[idx] = 0
	}
}
