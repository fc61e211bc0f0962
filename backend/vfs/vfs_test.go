package vfs

import (
	"testing"

	"github.com/absfs/memfs"
	"github.com/sahib/cowstore/backend"
	"github.com/sahib/cowstore/util/testutil"
	"github.com/stretchr/testify/require"
)

func TestVFSRead(t *testing.T) {
	fs, err := memfs.NewFS()
	require.NoError(t, err)

	data := testutil.CreateDummyBuf(1000)
	fd, err := fs.Create("/blob")
	require.NoError(t, err)
	_, err = fd.Write(data)
	require.NoError(t, err)
	require.NoError(t, fd.Close())

	b := New(fs, "/blob")
	require.NoError(t, b.Open())
	defer b.Close()

	info, err := b.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(1000), info.Size)

	buf, err := b.Read(10, 90)
	require.NoError(t, err)
	require.Equal(t, data[10:100], buf)

	buf, err = b.Read(1000, 0)
	require.NoError(t, err)
	require.Empty(t, buf)

	_, err = b.Read(990, 11)
	require.True(t, backend.IsOutOfBounds(err))
}

func TestVFSMissing(t *testing.T) {
	fs, err := memfs.NewFS()
	require.NoError(t, err)

	b := New(fs, "/nope")
	require.Error(t, b.Open())

	_, err = b.Stat()
	require.Equal(t, backend.ErrNotOpen, err)
}
