package overlay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"math/rand"
	"sync"
	"testing"

	"github.com/sahib/cowstore/backend"
	"github.com/sahib/cowstore/backend/memory"
	"github.com/sahib/cowstore/backend/mock"
	"github.com/sahib/cowstore/util/testutil"
	"github.com/stretchr/testify/require"
)

func withStore(t *testing.T, data []byte, pageSize int64, fn func(s *Store, b *mock.Backend)) {
	b := mock.NewMemory(data)
	s := New(b, Options{PageSize: pageSize})
	require.Nil(t, s.Open())
	b.Reset()

	fn(s, b)
	require.Nil(t, s.Close())
}

func mustRead(t *testing.T, s *Store, off, n int64) []byte {
	data, err := s.Read(off, n)
	require.Nil(t, err, "read [%d, +%d)", off, n)
	require.Len(t, data, int(n))
	return data
}

func TestEmptyWriteRead(t *testing.T) {
	withStore(t, nil, 0, func(s *Store, b *mock.Backend) {
		require.Nil(t, s.Write(0, []byte("hello")))
		require.Equal(t, []byte("hello"), mustRead(t, s, 0, 5))
		require.Equal(t, 0, b.Stats().Reads)
	})
}

func TestEmptyZeroRead(t *testing.T) {
	withStore(t, nil, 0, func(s *Store, b *mock.Backend) {
		data, err := s.Read(0, 0)
		require.Nil(t, err)
		require.Equal(t, []byte{}, data)
		require.Equal(t, 0, b.Stats().Reads)
	})
}

func TestEmptyReadOutOfRange(t *testing.T) {
	withStore(t, nil, 0, func(s *Store, b *mock.Backend) {
		_, err := s.Read(0, 5)
		require.True(t, IsRangeError(err))
		require.False(t, IsIOError(err))
	})
}

func TestWriteWithGap(t *testing.T) {
	withStore(t, nil, 0, func(s *Store, b *mock.Backend) {
		require.Nil(t, s.Write(10, []byte("hi")))
		require.Nil(t, s.Write(0, []byte("hello")))

		require.Equal(t, []byte("hi"), mustRead(t, s, 10, 2))
		require.Equal(t, []byte("hello"), mustRead(t, s, 0, 5))
		require.Equal(t, make([]byte, 5), mustRead(t, s, 5, 5))
		require.Equal(t, int64(12), s.Size())
	})
}

func TestReadFromBackend(t *testing.T) {
	withStore(t, []byte("contents"), 0, func(s *Store, b *mock.Backend) {
		require.Equal(t, []byte("content"), mustRead(t, s, 0, 7))
		require.Equal(t, 1, b.Stats().Reads)
	})
}

func TestSmallPages(t *testing.T) {
	withStore(t, []byte("contents"), 2, func(s *Store, b *mock.Backend) {
		require.Nil(t, s.Write(0, []byte("d")))
		require.Equal(t, []byte("don"), mustRead(t, s, 0, 3))

		require.Nil(t, s.Write(7, []byte("zzz")))
		require.Equal(t, []byte("dontentzzz"), mustRead(t, s, 0, 10))

		_, err := s.Read(0, 11)
		require.True(t, IsRangeError(err))

		require.Nil(t, s.Del(9, ToEnd))
		info, err := s.Stat()
		require.Nil(t, err)
		require.Equal(t, int64(9), info.Size)
		require.Equal(t, []byte("dontentzz"), mustRead(t, s, 0, 9))

		// Nothing was written to the backend:
		require.Equal(t, int64(8), s.OriginalSize())
		orig, err := b.Read(0, 8)
		require.Nil(t, err)
		require.Equal(t, []byte("contents"), orig)
	})
}

func TestMaterializeOnce(t *testing.T) {
	withStore(t, []byte("contents"), 4, func(s *Store, b *mock.Backend) {
		require.Nil(t, s.Write(0, []byte("a")))
		require.Nil(t, s.Write(1, []byte("b")))
		require.Nil(t, s.Write(2, []byte("cd")))
		require.Equal(t, 1, b.Stats().Reads)
		require.Equal(t, int64(4), b.Stats().BytesRead)

		// A present page is never fetched again:
		require.Nil(t, s.Write(3, []byte("e")))
		require.Equal(t, 1, b.Stats().Reads)
		require.Equal(t, int64(1), s.Usage().Pages)

		// Page 0 covers the read completely:
		require.Equal(t, []byte("abce"), mustRead(t, s, 0, 4))
		require.Equal(t, 1, b.Stats().Reads)

		// Only the uncovered part is asked from the backend:
		require.Equal(t, []byte("abceents"), mustRead(t, s, 0, 8))
		require.Equal(t, 2, b.Stats().Reads)
		require.Equal(t, int64(8), b.Stats().BytesRead)
	})
}

func TestLastPageIsPartial(t *testing.T) {
	withStore(t, []byte("contents"), 3, func(s *Store, b *mock.Backend) {
		// Page 2 is [6, 9), but the backend ends at 8.
		require.Nil(t, s.Write(6, []byte("T")))
		require.Equal(t, int64(2), b.Stats().BytesRead)
		require.Equal(t, []byte("contenTs"), mustRead(t, s, 0, 8))

		require.Nil(t, s.Truncate(9))
		require.Equal(t, []byte("Ts\x00"), mustRead(t, s, 6, 3))
	})
}

func TestIOErrorLeavesPageAbsent(t *testing.T) {
	withStore(t, []byte("contents"), 4, func(s *Store, b *mock.Backend) {
		boom := errors.New("boom")
		b.FailNextRead(boom)

		err := s.Write(0, []byte("x"))
		require.True(t, IsIOError(err))
		require.True(t, errors.Is(err, boom))
		require.Equal(t, int64(0), s.Usage().Pages)

		// Nothing is left behind, so a retry just works:
		require.Nil(t, s.Write(0, []byte("x")))
		require.Equal(t, []byte("xontents"), mustRead(t, s, 0, 8))
		require.Equal(t, int64(1), s.Usage().Pages)
	})
}

func TestIOErrorOnRead(t *testing.T) {
	withStore(t, []byte("contents"), 4, func(s *Store, b *mock.Backend) {
		b.FailNextRead(mock.ErrInjected)
		_, err := s.Read(0, 8)
		require.True(t, IsIOError(err))
		require.Equal(t, []byte("contents"), mustRead(t, s, 0, 8))
	})
}

func TestMultiPageWriteIsNotAtomic(t *testing.T) {
	withStore(t, []byte("contents"), 2, func(s *Store, b *mock.Backend) {
		b.FailReads(func(off, length int64) error {
			if off >= 4 {
				return mock.ErrInjected
			}

			return nil
		})

		err := s.Write(0, []byte("XXXXXX"))
		require.True(t, IsIOError(err))
		require.Equal(t, int64(2), err.(*IOError).Page)

		// Pages 0 and 1 kept the write, page 2 stays absent:
		require.Equal(t, int64(2), s.Usage().Pages)

		b.FailReads(nil)
		require.Equal(t, []byte("XXXXent"), mustRead(t, s, 0, 7))
		require.Equal(t, int64(2), s.Usage().Pages)
	})
}

func TestOpenErrorSticks(t *testing.T) {
	b := mock.NewMemory([]byte("contents"))
	b.FailOpen(mock.ErrInjected)

	s := New(b, Options{})
	err := s.Open()
	require.True(t, IsOpenError(err))
	require.True(t, errors.Is(err, mock.ErrInjected))

	b.FailOpen(nil)
	_, err = s.Read(0, 1)
	require.True(t, IsOpenError(err))
	require.True(t, IsOpenError(s.Write(0, []byte("x"))))
	require.True(t, IsOpenError(s.Del(0, 1)))

	_, err = s.Stat()
	require.True(t, IsOpenError(err))
	require.Equal(t, 1, b.Stats().Opens)
}

func TestStatErrorIsOpenError(t *testing.T) {
	b := mock.NewMemory([]byte("contents"))
	b.FailStat(mock.ErrInjected)

	s := New(b, Options{})
	require.True(t, IsOpenError(s.Open()))
}

type negativeBackend struct {
	memory.Backend
}

func (nb *negativeBackend) Stat() (backend.Info, error) {
	return backend.Info{Size: -1}, nil
}

func TestNegativeBackendSize(t *testing.T) {
	err := New(&negativeBackend{}, Options{}).Open()
	require.True(t, IsOpenError(err))
	require.True(t, errors.Is(err, ErrNegativeSize))
}

func TestOpenIsIdempotent(t *testing.T) {
	b := mock.NewMemory([]byte("contents"))
	s := New(b, Options{})

	require.Nil(t, s.Open())
	require.Nil(t, s.Open())
	mustRead(t, s, 0, 8)

	_, err := s.Stat()
	require.Nil(t, err)

	require.Equal(t, 1, b.Stats().Opens)
	require.Equal(t, 1, b.Stats().Stats)
}

func TestImplicitOpen(t *testing.T) {
	s := New(memory.New([]byte("contents")), Options{})
	require.Equal(t, int64(0), s.Size())
	require.Equal(t, []byte("c"), mustRead(t, s, 0, 1))
	require.Equal(t, int64(8), s.Size())
}

func TestRangeErrorDoesNoIO(t *testing.T) {
	withStore(t, []byte("contents"), 4, func(s *Store, b *mock.Backend) {
		for _, tc := range []struct{ off, n int64 }{
			{5, 4}, {8, 1}, {9, 0}, {-1, 2}, {0, -1}, {1, ToEnd},
		} {
			_, err := s.Read(tc.off, tc.n)
			require.True(t, IsRangeError(err), "read [%d, +%d)", tc.off, tc.n)
		}

		require.True(t, IsRangeError(s.Write(-1, []byte("x"))))
		require.True(t, IsRangeError(s.Write(ToEnd, []byte("x"))))
		require.True(t, IsRangeError(s.Del(-1, 1)))
		require.True(t, IsRangeError(s.Truncate(-1)))
		require.Equal(t, 0, b.Stats().Reads)
		require.Equal(t, int64(8), s.Size())
	})
}

func TestInteriorDelZeroesWholePages(t *testing.T) {
	data := testutil.CreateDummyBuf(20)
	withStore(t, data, 4, func(s *Store, b *mock.Backend) {
		// [1, 13) covers page 1 and 2 completely.
		require.Nil(t, s.Del(1, 12))
		require.Equal(t, 0, b.Stats().Reads)
		require.Equal(t, int64(20), s.Size())

		expect := append([]byte{}, data...)
		copy(expect[4:12], make([]byte, 8))
		require.Equal(t, expect, mustRead(t, s, 0, 20))

		// Does not cover any page fully:
		require.Nil(t, s.Del(13, 2))
		require.Equal(t, expect, mustRead(t, s, 0, 20))
		require.Equal(t, int64(2), s.Usage().Pages)
	})
}

func TestInteriorDelOnPresentPage(t *testing.T) {
	withStore(t, []byte("contents"), 2, func(s *Store, b *mock.Backend) {
		require.Nil(t, s.Write(2, []byte("NT")))
		require.Nil(t, s.Del(2, 2))
		require.Equal(t, []byte("co\x00\x00ents"), mustRead(t, s, 0, 8))
	})
}

func TestTruncatingDel(t *testing.T) {
	data := testutil.CreateDummyBuf(10)
	withStore(t, data, 4, func(s *Store, b *mock.Backend) {
		require.Nil(t, s.Del(5, ToEnd))
		require.Equal(t, int64(5), s.Size())

		_, err := s.Read(5, 1)
		require.True(t, IsRangeError(err))
		require.Equal(t, data[:5], mustRead(t, s, 0, 5))

		// Extending again must not bring back old bytes:
		require.Nil(t, s.Write(8, []byte("x")))
		expect := append(append([]byte{}, data[:5]...), 0, 0, 0, 'x')
		require.Equal(t, expect, mustRead(t, s, 0, 9))
	})
}

func TestTruncatingDelExactEnd(t *testing.T) {
	withStore(t, []byte("contents"), 3, func(s *Store, b *mock.Backend) {
		require.Nil(t, s.Del(6, 2))
		require.Equal(t, int64(6), s.Size())

		require.Nil(t, s.Del(0, 6))
		require.Equal(t, int64(0), s.Size())

		require.Nil(t, s.Truncate(8))
		require.Equal(t, make([]byte, 8), mustRead(t, s, 0, 8))
	})
}

func TestDelAtEnd(t *testing.T) {
	withStore(t, []byte("contents"), 3, func(s *Store, b *mock.Backend) {
		require.Nil(t, s.Del(8, ToEnd))
		require.Nil(t, s.Del(3, 0))
		require.Equal(t, int64(8), s.Size())
		require.Equal(t, int64(0), s.Usage().Pages)
		require.Equal(t, []byte("contents"), mustRead(t, s, 0, 8))
	})
}

func TestDelPastEndGrows(t *testing.T) {
	withStore(t, []byte("contents"), 3, func(s *Store, b *mock.Backend) {
		require.Nil(t, s.Del(20, 5))
		require.Equal(t, int64(20), s.Size())
		require.Equal(t, int64(0), s.Usage().Pages)
		require.Equal(t, []byte("contents"), mustRead(t, s, 0, 8))
		require.Equal(t, make([]byte, 12), mustRead(t, s, 8, 12))

		_, err := s.Read(20, 1)
		require.True(t, IsRangeError(err))
	})
}

func TestDelPastEndAfterTruncate(t *testing.T) {
	withStore(t, []byte("contents"), 3, func(s *Store, b *mock.Backend) {
		require.Nil(t, s.Del(2, ToEnd))
		require.Nil(t, s.Del(10, ToEnd))
		require.Equal(t, int64(10), s.Size())
		require.Equal(t, []byte("co\x00\x00\x00\x00\x00\x00\x00\x00"), mustRead(t, s, 0, 10))
	})
}

func TestTruncate(t *testing.T) {
	withStore(t, []byte("contents"), 3, func(s *Store, b *mock.Backend) {
		require.Nil(t, s.Truncate(12))
		require.Equal(t, []byte("contents\x00\x00\x00\x00"), mustRead(t, s, 0, 12))

		require.Nil(t, s.Truncate(3))
		require.Equal(t, int64(3), s.Size())

		require.Nil(t, s.Truncate(10))
		require.Equal(t, []byte("con\x00\x00\x00\x00\x00\x00\x00"), mustRead(t, s, 0, 10))
	})
}

func TestReadAtWriteAt(t *testing.T) {
	withStore(t, []byte("contents"), 3, func(s *Store, b *mock.Backend) {
		n, err := s.WriteAt([]byte("NT"), 3)
		require.Nil(t, err)
		require.Equal(t, 2, n)

		buf := make([]byte, 4)
		n, err = s.ReadAt(buf, 2)
		require.Nil(t, err)
		require.Equal(t, 4, n)
		require.Equal(t, []byte("nNTn"), buf)

		n, err = s.ReadAt(buf, 6)
		require.Equal(t, io.EOF, err)
		require.Equal(t, 2, n)
		require.Equal(t, []byte("ts"), buf[:n])

		n, err = s.ReadAt(buf, 8)
		require.Equal(t, io.EOF, err)
		require.Equal(t, 0, n)

		_, err = s.ReadAt(buf, -1)
		require.True(t, IsRangeError(err))
	})
}

func TestReaderAndWriteTo(t *testing.T) {
	data := testutil.CreateDummyBuf(100)
	withStore(t, data, 16, func(s *Store, b *mock.Backend) {
		require.Nil(t, s.Write(90, []byte("0123456789tail")))
		expect := append(append([]byte{}, data[:90]...), []byte("0123456789tail")...)

		r, err := s.NewReader()
		require.Nil(t, err)
		got, err := ioutil.ReadAll(r)
		require.Nil(t, err)
		require.Equal(t, expect, got)

		buf := &bytes.Buffer{}
		n, err := s.WriteTo(buf)
		require.Nil(t, err)
		require.Equal(t, int64(len(expect)), n)
		require.Equal(t, expect, buf.Bytes())
	})
}

func TestStackedStores(t *testing.T) {
	lower := New(memory.New([]byte("contents")), Options{PageSize: 2})
	require.Nil(t, lower.Write(0, []byte("C")))

	upper := New(lower, Options{PageSize: 3})
	require.Nil(t, upper.Write(7, []byte("S!")))
	require.Nil(t, upper.Del(1, 2))

	require.Equal(t, []byte("ContentS!"), mustRead(t, upper, 0, 9))
	require.Equal(t, []byte("Contents"), mustRead(t, lower, 0, 8))
	require.Equal(t, int64(8), upper.OriginalSize())
}

type closeBackend struct {
	*mock.Backend
	closed int
}

func (cb *closeBackend) Close() error {
	cb.closed++
	return nil
}

func TestClose(t *testing.T) {
	b := &closeBackend{Backend: mock.NewMemory([]byte("contents"))}
	s := New(b, Options{PageSize: 4})
	require.Nil(t, s.Write(0, []byte("X")))

	require.Nil(t, s.Close())
	require.Nil(t, s.Close())
	require.Equal(t, 1, b.closed)
	require.Equal(t, Usage{}, s.Usage())

	_, err := s.Read(0, 1)
	require.Equal(t, ErrClosed, err)
	require.Equal(t, ErrClosed, s.Write(0, []byte("x")))
}

func TestUsage(t *testing.T) {
	withStore(t, nil, 8, func(s *Store, b *mock.Backend) {
		require.Nil(t, s.Write(0, make([]byte, 20)))
		require.Equal(t, Usage{Pages: 3, Bytes: 24}, s.Usage())
	})
}

func TestConcurrentDisjointPages(t *testing.T) {
	const (
		pageSize = 16
		workers  = 8
		rounds   = 50
	)

	data := testutil.CreateRandomDummyBuf(pageSize*workers*2, 23)
	withStore(t, data, pageSize, func(s *Store, b *mock.Backend) {
		wg := &sync.WaitGroup{}
		errs := make(chan error, workers)

		for worker := 0; worker < workers; worker++ {
			wg.Add(1)
			go func(worker int) {
				defer wg.Done()

				off := int64(worker * 2 * pageSize)
				for round := 0; round < rounds; round++ {
					buf := bytes.Repeat([]byte{byte(worker)}, pageSize+round%pageSize)
					if err := s.Write(off, buf); err != nil {
						errs <- err
						return
					}

					got, err := s.Read(off, int64(len(buf)))
					if err != nil {
						errs <- err
						return
					}

					if !bytes.Equal(got, buf) {
						errs <- fmt.Errorf("worker %d read back other data", worker)
						return
					}
				}
			}(worker)
		}

		wg.Wait()
		close(errs)
		for err := range errs {
			require.Nil(t, err)
		}
	})
}

func TestConcurrentSamePage(t *testing.T) {
	withStore(t, []byte("contents"), 8, func(s *Store, b *mock.Backend) {
		wg := &sync.WaitGroup{}
		errs := make(chan error, 8)
		for idx := 0; idx < 8; idx++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				errs <- s.Write(int64(idx), []byte("X"))
			}(idx)
		}

		wg.Wait()
		close(errs)
		for err := range errs {
			require.Nil(t, err)
		}

		// Whoever installed the page first, no write was lost.
		require.Equal(t, []byte("XXXXXXXX"), mustRead(t, s, 0, 8))
		require.Equal(t, int64(1), s.Usage().Pages)
	})
}

// model is the trivially correct version of a store.
type model struct {
	data     []byte
	pageSize int64
}

func (m *model) write(off int64, buf []byte) {
	if end := off + int64(len(buf)); end > int64(len(m.data)) {
		m.data = append(m.data, make([]byte, end-int64(len(m.data)))...)
	}

	copy(m.data[off:], buf)
}

func (m *model) del(off, n int64) {
	size := int64(len(m.data))
	if off >= size {
		m.truncate(off)
		return
	}

	if off+n >= size {
		m.data = m.data[:off]
		return
	}

	for idx := (off + m.pageSize - 1) / m.pageSize; (idx+1)*m.pageSize <= off+n; idx++ {
		copy(m.data[idx*m.pageSize:(idx+1)*m.pageSize], make([]byte, m.pageSize))
	}
}

func (m *model) truncate(size int64) {
	if size > int64(len(m.data)) {
		m.data = append(m.data, make([]byte, size-int64(len(m.data)))...)
		return
	}

	m.data = m.data[:size]
}

func TestRandomAgainstModel(t *testing.T) {
	for _, pageSize := range []int64{1, 3, 16, 64} {
		t.Run(fmt.Sprintf("page-%d", pageSize), func(t *testing.T) {
			rng := rand.New(rand.NewSource(pageSize))
			data := testutil.CreateRandomDummyBuf(200, pageSize)
			m := &model{data: append([]byte{}, data...), pageSize: pageSize}

			withStore(t, data, pageSize, func(s *Store, b *mock.Backend) {
				for step := 0; step < 500; step++ {
					size := int64(len(m.data))
					off := rng.Int63n(size + 20)
					n := rng.Int63n(80)

					switch rng.Intn(5) {
					case 0, 1:
						buf := testutil.CreateRandomDummyBuf(n, int64(step))
						require.Nil(t, s.Write(off, buf))
						m.write(off, buf)
					case 2:
						require.Nil(t, s.Del(off, n))
						m.del(off, n)
					case 3:
						require.Nil(t, s.Truncate(off))
						m.truncate(off)
					case 4:
						if off+n > size {
							_, err := s.Read(off, n)
							require.True(t, IsRangeError(err))
							continue
						}

						require.Equal(t, m.data[off:off+n], mustRead(t, s, off, n), "step %d", step)
					}

					require.Equal(t, int64(len(m.data)), s.Size(), "step %d", step)
				}

				require.Equal(t, m.data, mustRead(t, s, 0, s.Size()))
			})
		})
	}
}
