package util

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestMin(t *testing.T) {
	require.Equal(t, 3, Min(3, 7))
	require.Equal(t, 3, Min(7, 3))
}

func TestRounddown(t *testing.T) {
	require.Equal(t, 8, Rounddown(10, 4))
	require.Equal(t, 0, Rounddown(3, 4))
}

func TestRoundup(t *testing.T) {
	require.Equal(t, 12, Roundup(10, 4))
	require.Equal(t, 4, Roundup(1, 4))
	require.Equal(t, 8, Roundup(8, 4), "an already-aligned value stays put")
}

func TestWritenStoresValueAtOffset(t *testing.T) {
	buf := make([]uint8, 16)
	Writen(buf, 8, 4, 0x7f)
	require.Equal(t, 0x7f, *(*int)(unsafe.Pointer(&buf[4])))

	Writen(buf, 4, 0, 0x11223344)
	require.Equal(t, uint32(0x11223344), *(*uint32)(unsafe.Pointer(&buf[0])))
}

func TestWritenPanicsOutOfBounds(t *testing.T) {
	buf := make([]uint8, 4)
	require.Panics(t, func() { Writen(buf, 8, 0, 1) })
}

func TestWritenPanicsOnUnsupportedSize(t *testing.T) {
	buf := make([]uint8, 16)
	require.Panics(t, func() { Writen(buf, 3, 0, 1) })
}
