// Package fs implements the on-disk pieces spec.md names as given
// primitives — bread, bwrite, log_begin/log_write/log_end, ialloc, iget,
// readi, writei, dirlink, dirlookup, balloc, bfree — plus the two pieces
// spec.md actually specifies on top of them: the snapshot reference
// bitmap (§4.7) and the copy-on-write write path (§4.9).
//
// spec.md §1 lists "the block cache, write-ahead log, and inode/dirent
// on-disk layout" as deliberately out of scope ("external collaborators");
// this package still has to provide *something* working for the COW path
// to call, so it implements a deliberately simple simulated block device
// and single-writer log in the teacher's idiom (biscuit/src/fs/blk.go's
// Bdev_block_t/Disk_i shape), rather than the teacher's full async-request,
// multi-disk AHCI driver — the realism budget belongs to the COW/snapshot
// logic spec.md actually specifies, not to disk-queue plumbing it waves
// away.
package fs

import (
	"sync"

	"swxlate/src/defs"
)

// BSIZE is the size of a disk block in bytes (spec.md §4.9's "bn = off/BSIZE").
const BSIZE = 4096

/// Block_t is a cached disk block: a stable pointer to BSIZE bytes plus
/// the lock callers take while inspecting or mutating it, grounded on
/// biscuit/src/fs/blk.go's Bdev_block_t.
type Block_t struct {
	sync.Mutex
	Num  int
	Data *[BSIZE]byte
}

/// Disk_t is a simulated block device: a growable array of zero-initialized
/// blocks. Missing blocks read as zero, matching a freshly formatted disk.
type Disk_t struct {
	mu     sync.RWMutex
	blocks map[int]*[BSIZE]byte
	nblk   int
}

/// MkDisk creates a simulated disk with nblk addressable blocks.
func MkDisk(nblk int) *Disk_t {
	return &Disk_t{
		blocks: make(map[int]*[BSIZE]byte),
		nblk:   nblk,
	}
}

/// Nblock reports the total number of addressable blocks.
func (d *Disk_t) Nblock() int {
	return d.nblk
}

/// Bread returns the cached block for num, allocating a zeroed backing
/// array on first touch.
func (d *Disk_t) Bread(num int) *Block_t {
	if num < 0 || num >= d.nblk {
		panic("block number out of range")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	data, ok := d.blocks[num]
	if !ok {
		data = &[BSIZE]byte{}
		d.blocks[num] = data
	}
	return &Block_t{Num: num, Data: data}
}

/// Bwrite is a no-op on this simulated disk: Block_t.Data already aliases
/// the disk's backing storage, so mutations are visible immediately. It
/// exists so callers can spell "bwrite(b)" the way the on-disk primitives
/// spec.md names expect.
func (d *Disk_t) Bwrite(b *Block_t) {}

/// Zero clears a block to all zero bytes.
func (b *Block_t) Zero() {
	*b.Data = [BSIZE]byte{}
}

// rootDisk is the single simulated disk this kernel mounts at boot.
// Multiple-disk support is out of scope; spec.md's primitives take a
// device id, kept here only as defs.NoPid-style bookkeeping.
var rootDisk *Disk_t

/// InitDisk installs a fresh, empty root simulated disk sized to hold nblk
/// blocks. It writes no superblock or bitmaps; InitFS formats the disk
/// afterwards, and OpenImage loads an existing image onto it.
func InitDisk(nblk int) {
	rootDisk = MkDisk(nblk)
}

func disk() *Disk_t {
	if rootDisk == nil {
		panic("fs: disk not initialized")
	}
	return rootDisk
}

// checkRange turns an out-of-range index into -EINVAL instead of a panic.
// Nothing in the package calls it at present.
func checkRange(b, lo, hi int) defs.Err_t {
	if b < lo || b >= hi {
		return -defs.EINVAL
	}
	return 0
}
