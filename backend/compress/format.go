package compress

import (
	"bytes"
	"encoding/binary"
	"errors"
)

var (
	// ErrBadIndex is returned on invalid compression index.
	ErrBadIndex = errors.New("broken compression index")

	// ErrHeaderTooSmall is returned if the stream is too short to hold
	// a header and a trailer. It usually indicates a broken or
	// non-compressed file.
	ErrHeaderTooSmall = errors.New("stream is too small for header and trailer")

	// ErrBadMagicNumber is returned if the first 8 bytes of the stream is not
	// the expected magic number.
	ErrBadMagicNumber = errors.New("bad magic number in compressed stream")

	// ErrUnsupportedVersion is returned when we don't have a reader that
	// understands that format.
	ErrUnsupportedVersion = errors.New("version of this format is not supported")

	// MagicNumber is the magic number in front of a compressed stream
	MagicNumber = []byte("cowzchnk")
)

const (
	maxChunkSize   = 64 * 1024
	indexChunkSize = 16
	trailerSize    = 12
	headerSize     = 12
	currentVersion = 1
)

// record maps an uncompressed offset to the compressed offset of the chunk
// starting there. Two consecutive records delimit one chunk.
type record struct {
	rawOff int64
	zipOff int64
}

// trailer holds basic information about the compressed stream.
type trailer struct {
	chunksize uint32
	indexSize uint64
}

func (t *trailer) marshal(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], t.chunksize)
	binary.LittleEndian.PutUint64(buf[4:12], t.indexSize)
}

func (t *trailer) unmarshal(buf []byte) {
	t.chunksize = binary.LittleEndian.Uint32(buf[0:4])
	t.indexSize = binary.LittleEndian.Uint64(buf[4:12])
}

func (rc *record) marshal(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], uint64(rc.rawOff))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(rc.zipOff))
}

func (rc *record) unmarshal(buf []byte) {
	rc.rawOff = int64(binary.LittleEndian.Uint64(buf[0:8]))
	rc.zipOff = int64(binary.LittleEndian.Uint64(buf[8:16]))
}

type header struct {
	algo    AlgorithmType
	version uint16
}

func makeHeader(algo AlgorithmType, version uint16) []byte {
	buf := make([]byte, headerSize)
	copy(buf, MagicNumber)
	binary.LittleEndian.PutUint16(buf[8:10], version)
	binary.LittleEndian.PutUint16(buf[10:12], uint16(algo))
	return buf
}

func readHeader(bheader []byte) (*header, error) {
	if len(bheader) < headerSize {
		return nil, ErrHeaderTooSmall
	}

	if !bytes.Equal(bheader[:len(MagicNumber)], MagicNumber) {
		return nil, ErrBadMagicNumber
	}

	version := binary.LittleEndian.Uint16(bheader[8:10])
	if version != currentVersion {
		return nil, ErrUnsupportedVersion
	}

	algo := AlgorithmType(binary.LittleEndian.Uint16(bheader[10:12]))
	if !algo.IsValid() {
		return nil, ErrBadAlgo
	}

	return &header{
		algo:    algo,
		version: version,
	}, nil
}

// parseIndex checks that the records are strictly increasing and point
// inside the chunk area [headerSize, indexOff].
func parseIndex(buf []byte, indexOff int64) ([]record, error) {
	if len(buf) == 0 || len(buf)%indexChunkSize != 0 {
		return nil, ErrBadIndex
	}

	index := make([]record, 0, len(buf)/indexChunkSize)
	for off := 0; off < len(buf); off += indexChunkSize {
		rc := record{}
		rc.unmarshal(buf[off : off+indexChunkSize])

		if rc.zipOff < headerSize || rc.zipOff > indexOff || rc.rawOff < 0 {
			return nil, ErrBadIndex
		}

		if n := len(index); n > 0 {
			prev := index[n-1]
			if rc.rawOff <= prev.rawOff || rc.zipOff <= prev.zipOff {
				return nil, ErrBadIndex
			}
		}

		index = append(index, rc)
	}

	if index[0].rawOff != 0 || index[0].zipOff != headerSize {
		return nil, ErrBadIndex
	}

	if index[len(index)-1].zipOff != indexOff {
		return nil, ErrBadIndex
	}

	return index, nil
}

// Pack compresses `data` with `algo` and returns the resulting data.
// This is a convenience method meant to be used for small data packages.
func Pack(data []byte, algo AlgorithmType) ([]byte, error) {
	zipBuf := &bytes.Buffer{}
	zipW, err := NewWriter(zipBuf, algo)
	if err != nil {
		return nil, err
	}

	if _, err := zipW.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	if err := zipW.Close(); err != nil {
		return nil, err
	}

	return zipBuf.Bytes(), nil
}
