package snap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"swxlate/src/fs"
	"swxlate/src/limits"
)

const testNblk = 1024
const testNinodes = 200

func freshFS(t *testing.T) *fs.Superblock_t {
	t.Helper()
	return fs.InitFS(testNblk, testNinodes)
}

func TestCreateMirrorsLiveTreeAndReturnsUniqueID(t *testing.T) {
	sb := freshFS(t)
	inum := fs.CreateFile(sb, fs.RootIno, "a")
	_, err := fs.Writei(sb, inum, []byte("hello"), 0)
	require.Zero(t, err)

	id1, createErr := Create(sb)
	require.NoError(t, createErr)

	id2, createErr := Create(sb)
	require.NoError(t, createErr)
	require.NotEqual(t, id1, id2)

	snapRoot := fs.EnsureSnapshotDir(sb)
	_, ok := fs.Dirlookup(sb, snapRoot, HexName(id1))
	require.True(t, ok, "snapshot_create must leave a /snapshot/<hex-id> directory behind")
}

func TestCreateProtectsMirroredBlocksInSmap(t *testing.T) {
	sb := freshFS(t)
	inum := fs.CreateFile(sb, fs.RootIno, "a")
	_, err := fs.Writei(sb, inum, []byte("protected"), 0)
	require.Zero(t, err)

	addrs := fs.InodeAddrs(sb, inum)
	blockIdx := fs.DataBlockIndex(sb, int(addrs[0]))
	require.False(t, fs.SmapTest(blockIdx))

	_, createErr := Create(sb)
	require.NoError(t, createErr)

	require.True(t, fs.SmapTest(blockIdx), "snapshot_create must protect the live file's blocks via smapi")
}

func TestRollbackRestoresPreSnapshotContent(t *testing.T) {
	sb := freshFS(t)
	inum := fs.CreateFile(sb, fs.RootIno, "f")
	original := []byte("pre-create content")
	_, err := fs.Writei(sb, inum, original, 0)
	require.Zero(t, err)

	id, createErr := Create(sb)
	require.NoError(t, createErr)

	// Mutate the live file after the snapshot was taken.
	_, err = fs.Writei(sb, inum, []byte("MUTATED!"), 0)
	require.Zero(t, err)

	rollErr := Rollback(sb, id)
	require.NoError(t, rollErr)

	newInum, ok := fs.Dirlookup(sb, fs.RootIno, "f")
	require.True(t, ok)

	buf := make([]byte, len(original))
	n, rerr := fs.Readi(sb, newInum, buf, 0)
	require.Zero(t, rerr)
	require.Equal(t, len(original), n)
	require.Equal(t, original, buf, "rollback must leave the file's content equal to its pre-create content")
}

func TestRollbackOfUnknownIDFails(t *testing.T) {
	sb := freshFS(t)
	err := Rollback(sb, 0xdeadbeef)
	require.ErrorIs(t, err, ErrInvalidID)
}

func TestDeleteRemovesSnapshotDirectoryAndInvalidatesID(t *testing.T) {
	sb := freshFS(t)
	fs.CreateFile(sb, fs.RootIno, "a")

	id, createErr := Create(sb)
	require.NoError(t, createErr)

	before := Count()
	delErr := Delete(sb, id)
	require.NoError(t, delErr)
	require.Equal(t, before-1, Count())

	snapRoot := fs.EnsureSnapshotDir(sb)
	_, ok := fs.Dirlookup(sb, snapRoot, HexName(id))
	require.False(t, ok)

	require.ErrorIs(t, Rollback(sb, id), ErrInvalidID, "a deleted id must no longer be accepted")
}

func TestDeleteOfUnknownIDFails(t *testing.T) {
	sb := freshFS(t)
	err := Delete(sb, 0xdeadbeef)
	require.ErrorIs(t, err, ErrInvalidID)
}

func TestCreateFailsWhenInodeBudgetExhausted(t *testing.T) {
	sb := freshFS(t)
	fs.CreateFile(sb, fs.RootIno, "a")

	// Drain the system-wide inode budget to zero so admit()'s
	// limits.Syslimit.Inodes.Taken call must fail, independent of this
	// disk's own free-inode count.
	for limits.Syslimit.Inodes.Taken(1) {
	}

	_, err := Create(sb)
	require.ErrorIs(t, err, ErrOutOfInodes)

	limits.Syslimit.Inodes.Given(10000)
}
