package fs

import "encoding/binary"

// superblockFieldBytes is the width in bytes of each superblock field; the
// field indices match the accessor methods below, adapted from
// biscuit/src/fs/super.go (whose fieldr/fieldw helpers were never retrieved
// in the pack — this file supplies them against a plain little-endian
// uint32-per-field layout instead of guessing at the teacher's).
const superblockFieldBytes = 4

/// Superblock_t is the on-disk super block: geometry of the log, inode
/// bitmap, free-block bitmap, and inode table.
type Superblock_t struct {
	Data *[BSIZE]byte
}

func fieldr(d *[BSIZE]byte, field int) int {
	off := field * superblockFieldBytes
	return int(binary.LittleEndian.Uint32(d[off : off+superblockFieldBytes]))
}

func fieldw(d *[BSIZE]byte, field int, v int) {
	off := field * superblockFieldBytes
	binary.LittleEndian.PutUint32(d[off:off+superblockFieldBytes], uint32(v))
}

/// Loglen returns the length of the on-disk log in blocks.
func (sb *Superblock_t) Loglen() int { return fieldr(sb.Data, 0) }

/// Imapblock returns the starting block of the inode bitmap.
func (sb *Superblock_t) Imapblock() int { return fieldr(sb.Data, 1) }

/// Imaplen returns the length of the inode bitmap in blocks.
func (sb *Superblock_t) Imaplen() int { return fieldr(sb.Data, 2) }

/// Freeblock gives the starting block of the free block bitmap.
func (sb *Superblock_t) Freeblock() int { return fieldr(sb.Data, 3) }

/// Freeblocklen returns the length of the free block bitmap.
func (sb *Superblock_t) Freeblocklen() int { return fieldr(sb.Data, 4) }

/// Inodeblock returns the starting block of the inode table.
func (sb *Superblock_t) Inodeblock() int { return fieldr(sb.Data, 5) }

/// Inodelen reports the number of blocks containing inodes.
func (sb *Superblock_t) Inodelen() int { return fieldr(sb.Data, 6) }

/// Lastblock returns the address of the last block on the device.
func (sb *Superblock_t) Lastblock() int { return fieldr(sb.Data, 7) }

/// Ninodes returns the total inode count the inode table holds.
func (sb *Superblock_t) Ninodes() int { return fieldr(sb.Data, 8) }

/// Datablock returns the first data block number.
func (sb *Superblock_t) Datablock() int { return fieldr(sb.Data, 9) }

/// Ndatablocks returns the total number of data blocks (spec.md §3/§4.7:
/// NBLOCKS, the size of the smap bitmap in bits).
func (sb *Superblock_t) Ndatablocks() int { return fieldr(sb.Data, 10) }

/// SetLoglen updates the log length field.
func (sb *Superblock_t) SetLoglen(n int) { fieldw(sb.Data, 0, n) }

/// SetImapblock records the starting block of the inode bitmap.
func (sb *Superblock_t) SetImapblock(n int) { fieldw(sb.Data, 1, n) }

/// SetImaplen writes the length of the inode bitmap.
func (sb *Superblock_t) SetImaplen(n int) { fieldw(sb.Data, 2, n) }

/// SetFreeblock stores the start block of the free block bitmap.
func (sb *Superblock_t) SetFreeblock(n int) { fieldw(sb.Data, 3, n) }

/// SetFreeblocklen writes the free block bitmap length.
func (sb *Superblock_t) SetFreeblocklen(n int) { fieldw(sb.Data, 4, n) }

/// SetInodeblock records the starting block of the inode table.
func (sb *Superblock_t) SetInodeblock(n int) { fieldw(sb.Data, 5, n) }

/// SetInodelen writes the number of inode blocks.
func (sb *Superblock_t) SetInodelen(n int) { fieldw(sb.Data, 6, n) }

/// SetLastblock stores the address of the last block on the disk.
func (sb *Superblock_t) SetLastblock(n int) { fieldw(sb.Data, 7, n) }

/// SetNinodes stores the total inode count.
func (sb *Superblock_t) SetNinodes(n int) { fieldw(sb.Data, 8, n) }

/// SetDatablock stores the first data block number.
func (sb *Superblock_t) SetDatablock(n int) { fieldw(sb.Data, 9, n) }

/// SetNdatablocks stores the total number of data blocks.
func (sb *Superblock_t) SetNdatablocks(n int) { fieldw(sb.Data, 10, n) }

const superblockNum = 1

/// ReadSuper reads the super block from its fixed location.
func ReadSuper() *Superblock_t {
	b := disk().Bread(superblockNum)
	return &Superblock_t{Data: b.Data}
}
