package fs

import "swxlate/src/util"

// InitFS formats a fresh simulated disk of nblk blocks with ninodes
// inode slots: lays out the superblock, log region, inode bitmap, inode
// table, and free-block bitmap, then creates the root directory and
// initializes the snapshot bitmap. This is the mkfs-equivalent entry
// point cmd/mkfs and tests call to get a working filesystem (grounded on
// the layout constants biscuit/mkfs/mkfs.go computed, re-derived here
// since that file's Ufs_t dependency was never retrieved in the pack —
// see DESIGN.md).
func InitFS(nblk int, ninodes int) *Superblock_t {
	InitDisk(nblk)

	const loglen = 32
	imaplen := 1
	inodelen := util.Roundup(ninodes*dinodeSize, BSIZE) / BSIZE

	used := 2 + loglen + imaplen + inodelen
	remaining := nblk - used
	// reserve one block of free-bitmap capacity per (BSIZE*8) data
	// blocks, solving the small fixed point directly since the free
	// bitmap itself consumes blocks out of the same remaining pool.
	freeblocklen := 1
	for {
		ndata := remaining - freeblocklen
		need := util.Roundup(ndata, BSIZE*8) / (BSIZE * 8)
		if need <= freeblocklen {
			break
		}
		freeblocklen = need
	}
	ndatablocks := remaining - freeblocklen
	if ndatablocks <= 0 {
		panic("InitFS: disk too small")
	}

	sbBlk := disk().Bread(superblockNum)
	sb := &Superblock_t{Data: sbBlk.Data}
	sb.SetLoglen(loglen)
	sb.SetImapblock(2 + loglen)
	sb.SetImaplen(imaplen)
	sb.SetInodeblock(2 + loglen + imaplen)
	sb.SetInodelen(inodelen)
	sb.SetFreeblock(2 + loglen + imaplen + inodelen)
	sb.SetFreeblocklen(freeblocklen)
	sb.SetDatablock(used + freeblocklen)
	sb.SetNdatablocks(ndatablocks)
	sb.SetNinodes(ninodes)
	sb.SetLastblock(nblk - 1)

	MkRootDir(sb)
	SmapInit(ndatablocks)
	PersistSmap(sb)
	return sb
}
