package compress

import (
	"bytes"
	"io"

	"github.com/sahib/cowstore/util"
)

// Writer implements a compression writer.
type Writer struct {
	// Underlying compressed output stream.
	rawW io.Writer

	// Buffers data into maxChunkSize chunks.
	chunkBuf *bytes.Buffer

	// Index with records which contain chunk offsets.
	index []record

	// Accumulator representing uncompressed offset.
	rawOff int64

	// Accumulator representing compressed offset.
	zipOff int64

	algo     Algorithm
	algoType AlgorithmType

	// Becomes true after the first write.
	headerWritten bool
	closed        bool
}

// NewWriter returns a WriteCloser with compression support.
func NewWriter(w io.Writer, algoType AlgorithmType) (*Writer, error) {
	algo, err := AlgorithmFromType(algoType)
	if err != nil {
		return nil, err
	}

	return &Writer{
		rawW:     w,
		algo:     algo,
		algoType: algoType,
		chunkBuf: &bytes.Buffer{},
	}, nil
}

func (w *Writer) addRecordToIndex() {
	w.index = append(w.index, record{w.rawOff, w.zipOff})
}

func (w *Writer) flushBuffer(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	// Add record with start offset of the current chunk.
	w.addRecordToIndex()

	encData, err := w.algo.Encode(data)
	if err != nil {
		return err
	}

	n, err := w.rawW.Write(encData)
	if err != nil {
		return err
	}

	w.rawOff += int64(len(data))
	w.zipOff += int64(n)
	return nil
}

func (w *Writer) writeHeaderIfNeeded() error {
	if w.headerWritten {
		return nil
	}

	if _, err := w.rawW.Write(makeHeader(w.algoType, currentVersion)); err != nil {
		return err
	}

	w.headerWritten = true
	w.zipOff += headerSize
	return nil
}

func (w *Writer) Write(p []byte) (int, error) {
	if err := w.writeHeaderIfNeeded(); err != nil {
		return 0, err
	}

	written := len(p)
	for len(p) > 0 {
		n := util.Min(len(p), maxChunkSize-w.chunkBuf.Len())
		w.chunkBuf.Write(p[:n])
		p = p[n:]

		if w.chunkBuf.Len() < maxChunkSize {
			continue
		}

		if err := w.flushBuffer(w.chunkBuf.Next(maxChunkSize)); err != nil {
			return written - len(p), err
		}
	}

	return written, nil
}

// ReadFrom implements io.ReaderFrom
func (w *Writer) ReadFrom(r io.Reader) (int64, error) {
	buf := make([]byte, maxChunkSize)
	read := int64(0)

	if err := w.writeHeaderIfNeeded(); err != nil {
		return 0, err
	}

	for {
		// Only the last chunk may be smaller than maxChunkSize.
		n, rerr := io.ReadFull(r, buf)
		read += int64(n)
		if rerr != nil && rerr != io.ErrUnexpectedEOF && rerr != io.EOF {
			return read, rerr
		}

		if _, err := w.Write(buf[:n]); err != nil {
			return read, err
		}

		if rerr != nil {
			return read, nil
		}
	}
}

// Close writes the last chunk, the index and the trailer.
// It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}

	if err := w.writeHeaderIfNeeded(); err != nil {
		return err
	}

	if err := w.flushBuffer(w.chunkBuf.Bytes()); err != nil {
		return err
	}

	w.chunkBuf.Reset()
	w.addRecordToIndex()

	tr := trailer{
		chunksize: maxChunkSize,
		indexSize: uint64(indexChunkSize * len(w.index)),
	}

	indexBuf := make([]byte, tr.indexSize)
	for idx, rc := range w.index {
		rc.marshal(indexBuf[idx*indexChunkSize:])
	}

	if _, err := w.rawW.Write(indexBuf); err != nil {
		return err
	}

	trailerBuf := make([]byte, trailerSize)
	tr.marshal(trailerBuf)

	if _, err := w.rawW.Write(trailerBuf); err != nil {
		return err
	}

	w.closed = true
	return nil
}
