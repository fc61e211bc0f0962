// Package kv stores blobs chunk-wise in a badger key/value database
// and exposes each of them as read-only backend.
//
// Layout of the keys for a blob called NAME:
//
//   blob/NAME/size          -> 8 byte big endian size in bytes
//   blob/NAME/chunk         -> 8 byte big endian chunk size
//   blob/NAME/data/IDX      -> chunk number IDX (16 hex digits)
//
// The size key is written last and removed first; a blob without
// size key does not exist.
package kv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dgraph-io/badger"
	e "github.com/pkg/errors"
	"github.com/sahib/cowstore/backend"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultChunkSize is used when no chunk size was given to Open().
	DefaultChunkSize = 64 * 1024
)

var (
	// ErrNoSuchBlob is returned when a blob name is not in the database.
	ErrNoSuchBlob = errors.New("no such blob")

	// ErrBadName is returned for empty names or names containing a slash.
	ErrBadName = errors.New("blob names may not be empty or contain slashes")
)

// Store is a badger database holding blobs.
type Store struct {
	db        *badger.DB
	chunkSize int64
}

// Open opens (or creates) the database in `dir`.
// New blobs are split into chunks of `chunkSize` bytes.
func Open(dir string, chunkSize int64) (*Store, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir

	db, err := badger.Open(opts)
	if err != nil {
		return nil, e.Wrapf(err, "kv: open %s", dir)
	}

	return &Store{db: db, chunkSize: chunkSize}, nil
}

func sizeKey(name string) []byte {
	return []byte("blob/" + name + "/size")
}

func chunkSizeKey(name string) []byte {
	return []byte("blob/" + name + "/chunk")
}

func dataKey(name string, idx int64) []byte {
	return []byte(fmt.Sprintf("blob/%s/data/%016x", name, idx))
}

func encodeInt(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func decodeInt(buf []byte) (int64, error) {
	if len(buf) != 8 {
		return 0, fmt.Errorf("kv: bad integer value of %d bytes", len(buf))
	}

	return int64(binary.BigEndian.Uint64(buf)), nil
}

func checkName(name string) error {
	if name == "" || strings.Contains(name, "/") {
		return ErrBadName
	}

	return nil
}

func getInt(txn *badger.Txn, key []byte) (int64, error) {
	item, err := txn.Get(key)
	if err != nil {
		return 0, err
	}

	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}

	return decodeInt(val)
}

// Put reads all of `r` and stores it as blob `name`.
// An existing blob with the same name is replaced.
// It returns the number of bytes stored.
func (s *Store) Put(name string, r io.Reader) (int64, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}

	if err := s.Remove(name); err != nil && err != ErrNoSuchBlob {
		return 0, err
	}

	buf := make([]byte, s.chunkSize)
	size := int64(0)

	for idx := int64(0); ; idx++ {
		n, rerr := io.ReadFull(r, buf)
		if rerr != nil && rerr != io.EOF && rerr != io.ErrUnexpectedEOF {
			return size, e.Wrapf(rerr, "kv: read input of %s", name)
		}

		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			if err := s.db.Update(func(txn *badger.Txn) error {
				return txn.Set(dataKey(name, idx), chunk)
			}); err != nil {
				return size, e.Wrapf(err, "kv: store chunk %d of %s", idx, name)
			}

			size += int64(n)
		}

		if rerr != nil {
			break
		}
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(chunkSizeKey(name), encodeInt(s.chunkSize)); err != nil {
			return err
		}

		return txn.Set(sizeKey(name), encodeInt(size))
	})

	if err != nil {
		return size, e.Wrapf(err, "kv: finish %s", name)
	}

	log.WithFields(log.Fields{
		"name": name,
		"size": size,
	}).Debugf("kv: stored blob")

	return size, nil
}

// Remove deletes the blob `name` and all of its chunks.
func (s *Store) Remove(name string) error {
	if err := checkName(name); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		size, err := getInt(txn, sizeKey(name))
		if err == badger.ErrKeyNotFound {
			return ErrNoSuchBlob
		}

		if err != nil {
			return err
		}

		chunkSize, err := getInt(txn, chunkSizeKey(name))
		if err != nil {
			return err
		}

		if err := txn.Delete(sizeKey(name)); err != nil {
			return err
		}

		if err := txn.Delete(chunkSizeKey(name)); err != nil {
			return err
		}

		nChunks := (size + chunkSize - 1) / chunkSize
		for idx := int64(0); idx < nChunks; idx++ {
			if err := txn.Delete(dataKey(name, idx)); err != nil {
				return err
			}
		}

		return nil
	})
}

// Names returns the names of all complete blobs in lexical order.
func (s *Store) Names() ([]string, error) {
	names := []string{}
	prefix := []byte("blob/")

	err := s.db.View(func(txn *badger.Txn) error {
		iter := txn.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			key := string(iter.Item().Key())
			if !strings.HasSuffix(key, "/size") {
				continue
			}

			names = append(names, strings.TrimSuffix(key[len(prefix):], "/size"))
		}

		return nil
	})

	return names, err
}

// Blob returns a backend for the blob `name`.
// Whether it exists is only checked on Open().
func (s *Store) Blob(name string) *Blob {
	return &Blob{store: s, name: name}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Blob is a read-only view on a single blob.
type Blob struct {
	store     *Store
	name      string
	size      int64
	chunkSize int64
	opened    bool
}

// Open checks that the blob exists and remembers its size.
func (b *Blob) Open() error {
	if b.opened {
		return nil
	}

	if err := checkName(b.name); err != nil {
		return err
	}

	err := b.store.db.View(func(txn *badger.Txn) error {
		size, err := getInt(txn, sizeKey(b.name))
		if err == badger.ErrKeyNotFound {
			return ErrNoSuchBlob
		}

		if err != nil {
			return err
		}

		chunkSize, err := getInt(txn, chunkSizeKey(b.name))
		if err != nil {
			return err
		}

		if chunkSize <= 0 {
			return fmt.Errorf("kv: invalid chunk size %d", chunkSize)
		}

		b.size, b.chunkSize = size, chunkSize
		return nil
	})

	if err != nil {
		return e.Wrapf(err, "kv: open blob %s", b.name)
	}

	b.opened = true
	return nil
}

// Read assembles [off, off+length) from the chunks it touches.
func (b *Blob) Read(off, length int64) ([]byte, error) {
	if !b.opened {
		return nil, backend.ErrNotOpen
	}

	if err := backend.CheckBounds(off, length, b.size); err != nil {
		return nil, err
	}

	buf := make([]byte, length)
	if length == 0 {
		return buf, nil
	}

	err := b.store.db.View(func(txn *badger.Txn) error {
		dst := buf
		for idx := off / b.chunkSize; len(dst) > 0; idx++ {
			item, err := txn.Get(dataKey(b.name, idx))
			if err != nil {
				return e.Wrapf(err, "chunk %d", idx)
			}

			chunk, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			rel := int64(0)
			if chunkOff := idx * b.chunkSize; chunkOff < off {
				rel = off - chunkOff
			}

			if rel > int64(len(chunk)) {
				return fmt.Errorf("chunk %d is truncated", idx)
			}

			dst = dst[copy(dst, chunk[rel:]):]
		}

		return nil
	})

	if err != nil {
		return nil, e.Wrapf(err, "kv: read blob %s", b.name)
	}

	return buf, nil
}

// Stat returns the size of the blob.
func (b *Blob) Stat() (backend.Info, error) {
	if !b.opened {
		return backend.Info{}, backend.ErrNotOpen
	}

	return backend.Info{Size: b.size}, nil
}
