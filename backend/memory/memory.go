// Package memory implements a backend that keeps its data in a byte slice.
package memory

import (
	"sync"

	"github.com/sahib/cowstore/backend"
)

// Backend serves reads from memory.
// The zero value is a valid, empty backend.
type Backend struct {
	mu   sync.RWMutex
	data []byte
}

// New returns a backend holding a copy of `data`.
func New(data []byte) *Backend {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Backend{data: buf}
}

// Open is a no-op for memory.
func (b *Backend) Open() error {
	return nil
}

// Read copies [off, off+length) out of memory.
func (b *Backend) Read(off, length int64) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := backend.CheckBounds(off, length, int64(len(b.data))); err != nil {
		return nil, err
	}

	buf := make([]byte, length)
	copy(buf, b.data[off:off+length])
	return buf, nil
}

// Stat returns the size of the held data.
func (b *Backend) Stat() (backend.Info, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return backend.Info{Size: int64(len(b.data))}, nil
}

// Reset replaces the held data with a copy of `data`.
// Overlays that were opened before will not notice the size change.
func (b *Backend) Reset(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = make([]byte, len(data))
	copy(b.data, data)
}
