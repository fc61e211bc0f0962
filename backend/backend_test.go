package backend

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckBounds(t *testing.T) {
	require.NoError(t, CheckBounds(0, 0, 0))
	require.NoError(t, CheckBounds(0, 10, 10))
	require.NoError(t, CheckBounds(10, 0, 10))
	require.NoError(t, CheckBounds(3, 4, 10))

	for _, tc := range [][3]int64{
		{0, 1, 0},
		{11, 0, 10},
		{5, 6, 10},
		{-1, 1, 10},
		{1, -1, 10},
		{1, int64(^uint64(0) >> 1), 10},
	} {
		err := CheckBounds(tc[0], tc[1], tc[2])
		require.Error(t, err, "%v", tc)
		require.True(t, IsOutOfBounds(err))
	}

	require.False(t, IsOutOfBounds(errors.New("other")))
	require.False(t, IsOutOfBounds(nil))
}
