package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClamp64(t *testing.T) {
	require.Equal(t, int64(0), Clamp64(-1, 0, 1))
	require.Equal(t, int64(1), Clamp64(+1, 0, 1))
	require.Equal(t, int64(0), Clamp64(0, 0, 1))
	require.Equal(t, int64(1), Clamp64(+2, 0, 1))
}

func TestSaturatingAdd64(t *testing.T) {
	require.Equal(t, int64(5), SaturatingAdd64(2, 3))
	require.Equal(t, int64(math.MaxInt64), SaturatingAdd64(9, math.MaxInt64))
	require.Equal(t, int64(math.MaxInt64), SaturatingAdd64(math.MaxInt64, math.MaxInt64))
}

func TestCeilDiv64(t *testing.T) {
	require.Equal(t, int64(0), CeilDiv64(0, 4))
	require.Equal(t, int64(1), CeilDiv64(1, 4))
	require.Equal(t, int64(1), CeilDiv64(4, 4))
	require.Equal(t, int64(2), CeilDiv64(5, 4))
}
