// Package mock wraps a backend and records how it is used.
// Failures can be injected to exercise error paths.
package mock

import (
	"errors"
	"sync"

	"github.com/sahib/cowstore/backend"
	"github.com/sahib/cowstore/backend/memory"
)

// ErrInjected is the default error returned by an armed failure.
var ErrInjected = errors.New("injected failure")

// Stats is a snapshot of the recorded calls.
type Stats struct {
	Opens     int
	Stats     int
	Reads     int
	BytesRead int64
}

// Backend records calls to the backend it wraps.
type Backend struct {
	mu    sync.Mutex
	inner backend.Backend
	stats Stats

	failOpen error
	failStat error

	// failRead is asked before every read; a non-nil result fails it.
	failRead func(off, length int64) error
}

// New wraps `inner`.
func New(inner backend.Backend) *Backend {
	return &Backend{inner: inner}
}

// NewMemory wraps a memory backend holding a copy of `data`.
func NewMemory(data []byte) *Backend {
	return New(memory.New(data))
}

// FailOpen makes every following Open() return `err`.
// Passing nil disarms it.
func (b *Backend) FailOpen(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failOpen = err
}

// FailStat makes every following Stat() return `err`.
func (b *Backend) FailStat(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failStat = err
}

// FailReads installs `fn` as read hook; nil removes it.
func (b *Backend) FailReads(fn func(off, length int64) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failRead = fn
}

// FailNextRead fails exactly the next read with `err`.
func (b *Backend) FailNextRead(err error) {
	fired := false
	b.FailReads(func(off, length int64) error {
		if fired {
			return nil
		}

		fired = true
		return err
	})
}

// Stats returns a snapshot of the counters.
func (b *Backend) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Reset zeroes all counters.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats = Stats{}
}

// Open implements backend.Backend
func (b *Backend) Open() error {
	b.mu.Lock()
	b.stats.Opens++
	err := b.failOpen
	b.mu.Unlock()

	if err != nil {
		return err
	}

	return b.inner.Open()
}

// Stat implements backend.Backend
func (b *Backend) Stat() (backend.Info, error) {
	b.mu.Lock()
	b.stats.Stats++
	err := b.failStat
	b.mu.Unlock()

	if err != nil {
		return backend.Info{}, err
	}

	return b.inner.Stat()
}

// Read implements backend.Backend
func (b *Backend) Read(off, length int64) ([]byte, error) {
	b.mu.Lock()
	b.stats.Reads++
	fn := b.failRead
	var err error
	if fn != nil {
		err = fn(off, length)
	}
	b.mu.Unlock()

	if err != nil {
		return nil, err
	}

	data, err := b.inner.Read(off, length)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.stats.BytesRead += int64(len(data))
	b.mu.Unlock()
	return data, nil
}
