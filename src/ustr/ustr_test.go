package ustr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMkUstrHexZeroPads(t *testing.T) {
	require.Equal(t, "0a", MkUstrHex(10, 2).String())
	require.Equal(t, "ff", MkUstrHex(255, 0).String())
}

func TestEqComparesContent(t *testing.T) {
	require.True(t, Ustr("abc").Eq(Ustr("abc")))
	require.False(t, Ustr("abc").Eq(Ustr("abd")))
	require.False(t, Ustr("abc").Eq(Ustr("ab")))
}

func TestIsdotAndIsdotdot(t *testing.T) {
	require.True(t, Ustr(".").Isdot())
	require.False(t, Ustr("..").Isdot())
	require.True(t, Ustr("..").Isdotdot())
	require.False(t, Ustr(".").Isdotdot())
}

func TestExtendAppendsSlashSeparatedComponent(t *testing.T) {
	base := Ustr("/home")
	got := base.Extend(Ustr("user"))
	require.Equal(t, "/home/user", got.String())
}

func TestExtendDoesNotMutateReceiver(t *testing.T) {
	base := Ustr("/home")
	base.Extend(Ustr("user"))
	require.Equal(t, "/home", base.String())
}

func TestIsAbsolute(t *testing.T) {
	require.True(t, Ustr("/a/b").IsAbsolute())
	require.False(t, Ustr("a/b").IsAbsolute())
	require.False(t, Ustr("").IsAbsolute())
}

func TestMkUstrSliceTruncatesAtNUL(t *testing.T) {
	buf := []uint8{'h', 'i', 0, 'x', 'x'}
	require.Equal(t, "hi", MkUstrSlice(buf).String())
}

func TestIndexByte(t *testing.T) {
	require.Equal(t, 2, Ustr("ab/cd").IndexByte('/'))
	require.Equal(t, -1, Ustr("abcd").IndexByte('/'))
}
