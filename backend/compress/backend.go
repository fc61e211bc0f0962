package compress

import (
	"io"
	"os"
	"sort"
	"sync"

	e "github.com/pkg/errors"
	"github.com/sahib/cowstore/backend"
	log "github.com/sirupsen/logrus"
)

// Backend gives random access to the uncompressed content of a
// compressed stream. Only the chunks touched by a read are decoded;
// the most recently decoded chunk is kept around.
type Backend struct {
	mu sync.Mutex

	// Either set on creation or opened from path.
	rawR    io.ReaderAt
	rawSize int64
	path    string
	fd      *os.File

	opened bool
	algo     Algorithm
	algoType AlgorithmType
	index    []record

	cacheIdx  int
	cacheData []byte
}

// New returns a backend reading the compressed stream from `r`,
// which is `size` bytes long.
func New(r io.ReaderAt, size int64) *Backend {
	return &Backend{rawR: r, rawSize: size, cacheIdx: -1}
}

// NewFromFile returns a backend reading the compressed file at `path`.
// The file is opened on Open() and released by Close().
func NewFromFile(path string) *Backend {
	return &Backend{path: path, cacheIdx: -1}
}

func (b *Backend) readRaw(off, length int64) ([]byte, error) {
	buf := make([]byte, length)
	n, err := b.rawR.ReadAt(buf, off)
	if int64(n) == length {
		return buf, nil
	}

	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}

	return nil, err
}

// Open reads header, trailer and index.
func (b *Backend) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.opened {
		return nil
	}

	if b.rawR == nil {
		fd, err := os.Open(b.path)
		if err != nil {
			return e.Wrapf(err, "compress backend")
		}

		info, err := fd.Stat()
		if err != nil {
			fd.Close()
			return e.Wrapf(err, "compress backend")
		}

		b.fd = fd
		b.rawR = fd
		b.rawSize = info.Size()
	}

	if err := b.parse(); err != nil {
		if b.fd != nil {
			b.fd.Close()
			b.fd = nil
			b.rawR = nil
		}

		return e.Wrapf(err, "compress backend")
	}

	b.opened = true
	log.Debugf(
		"compress: opened stream with %d chunks (%v)",
		len(b.index)-1,
		b.algoType,
	)
	return nil
}

func (b *Backend) parse() error {
	if b.rawSize < headerSize+trailerSize {
		return ErrHeaderTooSmall
	}

	headerBuf, err := b.readRaw(0, headerSize)
	if err != nil {
		return err
	}

	hdr, err := readHeader(headerBuf)
	if err != nil {
		return err
	}

	algo, err := AlgorithmFromType(hdr.algo)
	if err != nil {
		return err
	}

	trailerBuf, err := b.readRaw(b.rawSize-trailerSize, trailerSize)
	if err != nil {
		return err
	}

	tr := trailer{}
	tr.unmarshal(trailerBuf)

	chunkArea := uint64(b.rawSize - headerSize - trailerSize)
	if tr.indexSize > chunkArea {
		return ErrBadIndex
	}

	indexOff := b.rawSize - trailerSize - int64(tr.indexSize)
	indexBuf, err := b.readRaw(indexOff, int64(tr.indexSize))
	if err != nil {
		return err
	}

	index, err := parseIndex(indexBuf, indexOff)
	if err != nil {
		return err
	}

	b.algo = algo
	b.algoType = hdr.algo
	b.index = index
	return nil
}

func (b *Backend) size() int64 {
	return b.index[len(b.index)-1].rawOff
}

// Stat returns the uncompressed size.
func (b *Backend) Stat() (backend.Info, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.opened {
		return backend.Info{}, backend.ErrNotOpen
	}

	return backend.Info{Size: b.size()}, nil
}

// chunkLookup returns the index of the chunk containing `off`.
func (b *Backend) chunkLookup(off int64) int {
	// Last record only marks the end.
	chunks := b.index[:len(b.index)-1]
	idx := sort.Search(len(chunks), func(i int) bool {
		return chunks[i].rawOff > off
	})

	return idx - 1
}

func (b *Backend) decodeChunk(idx int) ([]byte, error) {
	if idx == b.cacheIdx {
		return b.cacheData, nil
	}

	curr, next := b.index[idx], b.index[idx+1]
	zipData, err := b.readRaw(curr.zipOff, next.zipOff-curr.zipOff)
	if err != nil {
		return nil, err
	}

	data, err := b.algo.Decode(zipData)
	if err != nil {
		return nil, err
	}

	if int64(len(data)) != next.rawOff-curr.rawOff {
		return nil, ErrBadIndex
	}

	b.cacheIdx = idx
	b.cacheData = data
	return data, nil
}

// Read returns the uncompressed bytes [off, off+length).
func (b *Backend) Read(off, length int64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.opened {
		return nil, backend.ErrNotOpen
	}

	if err := backend.CheckBounds(off, length, b.size()); err != nil {
		return nil, err
	}

	buf := make([]byte, length)
	for pos := int64(0); pos < length; {
		idx := b.chunkLookup(off + pos)
		data, err := b.decodeChunk(idx)
		if err != nil {
			return nil, e.Wrapf(err, "compress backend: chunk %d", idx)
		}

		chunkOff := off + pos - b.index[idx].rawOff
		pos += int64(copy(buf[pos:], data[chunkOff:]))
	}

	return buf, nil
}

// Close releases the file opened by NewFromFile.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.opened = false
	b.cacheIdx = -1
	b.cacheData = nil

	if b.fd == nil {
		return nil
	}

	err := b.fd.Close()
	b.fd = nil
	b.rawR = nil
	return err
}
