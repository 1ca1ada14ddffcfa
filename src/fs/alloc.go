package fs

import "sync"

// Block Allocator hooks (spec.md §4.8): balloc respects the free-block
// bitmap as always; bfree additionally short-circuits on a block the
// snapshot reference bitmap still protects.

var allocMu sync.Mutex

func bitBlockFor(sb *Superblock_t, b int) (blkno int, byteoff int, mask byte) {
	blkno = sb.Freeblock() + b/(BSIZE*8)
	byteoff = (b % (BSIZE * 8)) / 8
	mask = 1 << uint(b%8)
	return
}

/// Balloc finds a free data block, marks it allocated in the free-block
/// bitmap, zeroes it, and returns its block number. Panics on exhaustion,
/// "inherited from the host FS design" per spec.md §7.
func Balloc(sb *Superblock_t) int {
	allocMu.Lock()
	defer allocMu.Unlock()

	n := sb.Ndatablocks()
	for b := 0; b < n; b++ {
		blkno, byteoff, mask := bitBlockFor(sb, b)
		bm := disk().Bread(blkno)
		if bm.Data[byteoff]&mask == 0 {
			bm.Data[byteoff] |= mask
			LogWrite(bm)
			data := sb.Datablock() + b
			zb := disk().Bread(data)
			zb.Zero()
			LogWrite(zb)
			return data
		}
	}
	panic("balloc: out of disk blocks")
}

/// Bfree returns block blockno (an absolute block number, not a
/// data-relative index) to the free pool, unless the snapshot reference bitmap still
/// marks it shared (spec.md §4.8).
func Bfree(sb *Superblock_t, blockno int) {
	b := blockno - sb.Datablock()
	if SmapTest(b) {
		return
	}
	allocMu.Lock()
	defer allocMu.Unlock()
	blkno, byteoff, mask := bitBlockFor(sb, b)
	bm := disk().Bread(blkno)
	bm.Data[byteoff] &^= mask
	LogWrite(bm)
}

var ialloMu sync.Mutex

/// Ialloc scans the inode table for a free (Type == T_FREE) slot, claims
/// it with the given type, and returns its inode number. Classic xv6
/// ialloc: no separate inode bitmap, the dinode's own Type field is the
/// allocation marker.
func Ialloc(sb *Superblock_t, itype int16) int {
	ialloMu.Lock()
	defer ialloMu.Unlock()

	for inum := 1; inum < sb.Ninodes(); inum++ {
		di := readDinode(sb, inum)
		if di.Type == T_FREE {
			*di = Dinode_t{Type: itype, Nlink: 0}
			writeDinode(sb, inum, di)
			return inum
		}
	}
	panic("ialloc: out of inodes")
}

/// Ifree marks inum free by resetting its dinode to the zero value.
func Ifree(sb *Superblock_t, inum int) {
	ialloMu.Lock()
	defer ialloMu.Unlock()
	writeDinode(sb, inum, &Dinode_t{})
}

/// IcountUsed returns the number of currently allocated (non-free)
/// inodes, used by the snapshot admission check's "micount" term
/// (spec.md §4.10).
func IcountUsed(sb *Superblock_t) int {
	ialloMu.Lock()
	defer ialloMu.Unlock()
	n := 0
	for inum := 1; inum < sb.Ninodes(); inum++ {
		if readDinode(sb, inum).Type != T_FREE {
			n++
		}
	}
	return n
}
