package fs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const testNblk = 512
const testNinodes = 64

func freshFS(t *testing.T) *Superblock_t {
	t.Helper()
	return InitFS(testNblk, testNinodes)
}

func TestWriteiThenReadiRoundTrips(t *testing.T) {
	sb := freshFS(t)
	inum := CreateFile(sb, RootIno, "hi")

	msg := []byte("hello, cow fs")
	n, err := Writei(sb, inum, msg, 0)
	require.Zero(t, err)
	require.Equal(t, len(msg), n)

	buf := make([]byte, len(msg))
	n, err = Readi(sb, inum, buf, 0)
	require.Zero(t, err)
	require.Equal(t, len(msg), n)
	require.Equal(t, msg, buf)
}

func TestWriteiDirectBlockCOWClonesOnlyThatBlock(t *testing.T) {
	sb := freshFS(t)
	inum := CreateFile(sb, RootIno, "f")

	data := make([]byte, 3*BSIZE)
	for i := range data {
		data[i] = byte(i)
	}
	_, err := Writei(sb, inum, data, 0)
	require.Zero(t, err)

	before := InodeAddrs(sb, inum)

	// Mark every block of the file shared (block 1 included), as
	// snapshot_create's Smapi would.
	Smapi(sb, inum)
	require.True(t, SmapTest(DataBlockIndex(sb, int(before[1]))))

	_, err = Writei(sb, inum, []byte{0xff}, BSIZE+5)
	require.Zero(t, err)

	after := InodeAddrs(sb, inum)
	require.Equal(t, before[0], after[0], "untouched block keeps its address")
	require.NotEqual(t, before[1], after[1], "the written-to shared block must be cloned to a new address")
	require.Equal(t, before[2], after[2])
	require.False(t, SmapTest(DataBlockIndex(sb, int(after[1]))), "the freshly cloned block is no longer shared")
}

func TestWriteiIndirectBlockMigratesWholeSubtree(t *testing.T) {
	sb := freshFS(t)
	inum := CreateFile(sb, RootIno, "big")

	data := make([]byte, (NDIRECT+3)*BSIZE)
	_, err := Writei(sb, inum, data, 0)
	require.Zero(t, err)

	before := InodeAddrs(sb, inum)
	beforeInd := IndirectAddrs(sb, inum)

	Smapi(sb, inum)

	_, err = Writei(sb, inum, []byte{0x1}, NDIRECT*BSIZE+1)
	require.Zero(t, err)

	after := InodeAddrs(sb, inum)
	require.NotEqual(t, before[NDIRECT], after[NDIRECT], "the indirect block itself must migrate")

	afterInd := IndirectAddrs(sb, inum)
	for i := 0; i < 3; i++ {
		require.NotEqual(t, beforeInd[i], afterInd[i], "every referenced indirect-block entry migrates")
	}
}

func TestBfreeSkipsSnapshotProtectedBlock(t *testing.T) {
	sb := freshFS(t)
	inum := CreateFile(sb, RootIno, "g")
	_, err := Writei(sb, inum, []byte("x"), 0)
	require.Zero(t, err)

	addrs := InodeAddrs(sb, inum)
	blockIdx := DataBlockIndex(sb, int(addrs[0]))
	SmapSet(blockIdx)

	Bfree(sb, int(addrs[0]))
	require.True(t, SmapTest(blockIdx), "a protected block's smap bit is untouched by bfree")
}

func TestDirlinkRejectsDuplicateName(t *testing.T) {
	sb := freshFS(t)
	inum := CreateFile(sb, RootIno, "dup")
	err := Dirlink(sb, RootIno, "dup", inum)
	require.NotZero(t, err)
}

func TestNameiResolvesNestedPath(t *testing.T) {
	sb := freshFS(t)
	dir := MkDir(sb, RootIno, "d")
	file := CreateFile(sb, dir, "f")

	got, ok := Namei(sb, "/d/f")
	require.True(t, ok)
	require.Equal(t, file, got)
}

func TestIcountUsedTracksAllocation(t *testing.T) {
	sb := freshFS(t)
	before := IcountUsed(sb)
	CreateFile(sb, RootIno, "a")
	require.Equal(t, before+1, IcountUsed(sb))
}
