package fs

import (
	"sync"

	"swxlate/src/defs"
)

// RootIno is the inode number of the root directory, the classic xv6
// convention.
const RootIno = 1

var lockTblMu sync.Mutex
var lockTbl = map[int]*sync.Mutex{}

func inodeLock(inum int) *sync.Mutex {
	lockTblMu.Lock()
	defer lockTblMu.Unlock()
	m, ok := lockTbl[inum]
	if !ok {
		m = &sync.Mutex{}
		lockTbl[inum] = m
	}
	return m
}

/// Ilock acquires the sleep-lock for inum. Per the resolved Open Question
/// (DESIGN.md): every allocator/lookup function here returns an unlocked
/// inode number; callers that intend to read or mutate it call Ilock
/// first and Iunlock when done.
func Ilock(inum int) { inodeLock(inum).Lock() }

/// Iunlock releases the sleep-lock for inum.
func Iunlock(inum int) { inodeLock(inum).Unlock() }

/// Bmmap resolves the bn'th block address of inum without allocating.
/// Returns (0, false) if that position has never been written.
func Bmmap(sb *Superblock_t, inum int, bn int) (int, bool) {
	di := readDinode(sb, inum)
	return bmapRead(sb, di, bn)
}

func bmapRead(sb *Superblock_t, di *Dinode_t, bn int) (int, bool) {
	if bn < NDIRECT {
		a := di.Addrs[bn]
		return int(a), a != 0
	}
	bn -= NDIRECT
	if bn >= NINDIRECT {
		return 0, false
	}
	indblk := di.Addrs[NDIRECT]
	if indblk == 0 {
		return 0, false
	}
	ib := disk().Bread(int(indblk))
	off := bn * 4
	a := le32(ib.Data[off : off+4])
	return int(a), a != 0
}

/// Bmap resolves the bn'th block address of inum, allocating a fresh data
/// block (and indirect block, if needed) when the position has never
/// been written. The updated dinode is persisted before return.
func Bmap(sb *Superblock_t, inum int, bn int) int {
	di := readDinode(sb, inum)
	if bn < NDIRECT {
		if di.Addrs[bn] == 0 {
			di.Addrs[bn] = uint32(Balloc(sb))
			writeDinode(sb, inum, di)
		}
		return int(di.Addrs[bn])
	}
	bn -= NDIRECT
	if bn >= NINDIRECT {
		panic("bmap: file too large")
	}
	if di.Addrs[NDIRECT] == 0 {
		di.Addrs[NDIRECT] = uint32(Balloc(sb))
		writeDinode(sb, inum, di)
	}
	ib := disk().Bread(int(di.Addrs[NDIRECT]))
	off := bn * 4
	a := le32(ib.Data[off : off+4])
	if a == 0 {
		a = uint32(Balloc(sb))
		put32(ib.Data[off:off+4], a)
		LogWrite(ib)
	}
	return int(a)
}

/// Readi copies len(dst) bytes starting at byte offset off of inum's data
/// into dst, returning the number of bytes actually copied (truncated at
/// the inode's recorded size).
func Readi(sb *Superblock_t, inum int, dst []byte, off int) (int, defs.Err_t) {
	di := readDinode(sb, inum)
	if off > int(di.Size) {
		return 0, 0
	}
	n := len(dst)
	if off+n > int(di.Size) {
		n = int(di.Size) - off
	}
	total := 0
	for total < n {
		bn := (off + total) / BSIZE
		boff := (off + total) % BSIZE
		blkno, ok := bmapRead(sb, di, bn)
		m := BSIZE - boff
		if m > n-total {
			m = n - total
		}
		if !ok {
			for i := 0; i < m; i++ {
				dst[total+i] = 0
			}
		} else {
			b := disk().Bread(blkno)
			copy(dst[total:total+m], b.Data[boff:boff+m])
		}
		total += m
	}
	return total, 0
}

/// Writei performs the copy-on-write-aware write path of spec.md §4.9:
/// before touching any byte, every block position the write will span is
/// scanned against the snapshot bitmap; blocks marked shared are cloned
/// (direct case) or the whole indirect subtree is migrated (indirect
/// case), and the rewritten smap is persisted, all inside one log
/// transaction.
func Writei(sb *Superblock_t, inum int, src []byte, off int) (int, defs.Err_t) {
	LogBegin()
	defer LogEnd()

	di := readDinode(sb, inum)
	if di.Type == T_DIR || di.Type == T_DEV {
		// directory and device inodes never go through the COW write
		// path (spec.md §4.9: "For non-directory, non-device inodes").
		return writeiRaw(sb, inum, di, src, off)
	}

	firstBn := off / BSIZE
	lastBn := (off + len(src) - 1) / BSIZE
	migrateIndirect := false
	cowed := false

	for bn := firstBn; bn <= lastBn; bn++ {
		addr, ok := bmapRead(sb, di, bn)
		if !ok {
			continue
		}
		b := addr - sb.Datablock()
		if !SmapTest(b) {
			continue
		}
		if bn < NDIRECT {
			old := disk().Bread(addr)
			var tmp [BSIZE]byte
			tmp = *old.Data
			SmapClear(b)
			newaddr := Balloc(sb)
			nb := disk().Bread(newaddr)
			*nb.Data = tmp
			LogWrite(nb)
			di.Addrs[bn] = uint32(newaddr)
			cowed = true
		} else {
			SmapClear(b)
			migrateIndirect = true
		}
	}

	if migrateIndirect {
		migrateIndirectBlock(sb, di)
		cowed = true
	}

	writeDinode(sb, inum, di)
	n, err := writeiRaw(sb, inum, di, src, off)
	if cowed {
		persistSmapRaw(sb)
	}
	return n, err
}

// migrateIndirectBlock copies the indirect block and every non-zero data
// block it references into freshly allocated blocks, then installs the
// new indirect block (spec.md §4.9, rationale in §9).
func migrateIndirectBlock(sb *Superblock_t, di *Dinode_t) {
	oldind := di.Addrs[NDIRECT]
	if oldind == 0 {
		return
	}
	oldib := disk().Bread(int(oldind))
	newind := Balloc(sb)
	newib := disk().Bread(newind)

	for i := 0; i < NINDIRECT; i++ {
		off := i * 4
		a := le32(oldib.Data[off : off+4])
		if a == 0 {
			continue
		}
		na := Balloc(sb)
		ob := disk().Bread(int(a))
		nb := disk().Bread(na)
		*nb.Data = *ob.Data
		LogWrite(nb)
		put32(newib.Data[off:off+4], na)
	}
	LogWrite(newib)
	di.Addrs[NDIRECT] = uint32(newind)
}

func writeiRaw(sb *Superblock_t, inum int, di *Dinode_t, src []byte, off int) (int, defs.Err_t) {
	total := 0
	for total < len(src) {
		bn := (off + total) / BSIZE
		boff := (off + total) % BSIZE
		blkno := Bmap(sb, inum, bn)
		m := BSIZE - boff
		if m > len(src)-total {
			m = len(src) - total
		}
		b := disk().Bread(blkno)
		copy(b.Data[boff:boff+m], src[total:total+m])
		LogWrite(b)
		total += m
	}
	if end := off + total; end > int(di.Size) {
		di.Size = uint32(end)
	}
	writeDinode(sb, inum, di)
	return total, 0
}

/// Dirlookup scans directory inum's entries for name and returns the
/// referenced inode number.
func Dirlookup(sb *Superblock_t, inum int, name string) (int, bool) {
	di := readDinode(sb, inum)
	n := int(di.Size) / direntSize
	var buf [direntSize]byte
	for i := 0; i < n; i++ {
		Readi(sb, inum, buf[:], i*direntSize)
		d := decodeDirent(buf[:])
		if d.Inum != 0 && direntName(d) == name {
			return int(d.Inum), true
		}
	}
	return 0, false
}

/// Dirlink appends a (name, inum) entry to directory dirInum. Returns
/// -EEXIST if the name is already present, -ENAMETOOLONG if name overflows
/// the fixed-width entry. Raw: assumes an active log transaction, since
/// it is always one step of a larger composite operation (MkDir, Icopy,
/// CreateFile, ...) that owns the surrounding transaction.
func Dirlink(sb *Superblock_t, dirInum int, name string, inum int) defs.Err_t {
	if len(name) > 14 {
		return -defs.ENAMETOOLONG
	}
	if _, ok := Dirlookup(sb, dirInum, name); ok {
		return -defs.EEXIST
	}
	var d Dirent_t
	d.Inum = uint16(inum)
	copy(d.Name[:], name)
	var buf [direntSize]byte
	encodeDirent(d, buf[:])

	di := readDinode(sb, dirInum)
	off := int(di.Size)
	writeiRaw(sb, dirInum, di, buf[:], off)
	return 0
}

/// Dirunlink clears the directory entry named name in dirInum (the slot
/// is zeroed, not compacted, matching classic xv6 unlink). Raw: assumes
/// an active log transaction (see Dirlink).
func Dirunlink(sb *Superblock_t, dirInum int, name string) defs.Err_t {
	di := readDinode(sb, dirInum)
	n := int(di.Size) / direntSize
	var buf [direntSize]byte
	for i := 0; i < n; i++ {
		Readi(sb, dirInum, buf[:], i*direntSize)
		d := decodeDirent(buf[:])
		if d.Inum != 0 && direntName(d) == name {
			var zero [direntSize]byte
			writeiRaw(sb, dirInum, di, zero[:], i*direntSize)
			return 0
		}
	}
	return -defs.ENOENT
}

/// MkRootDir formats a brand-new root directory inode with '.' and '..'
/// both pointing at itself, used by InitFS. Wraps Ialloc and the two
/// Dirlink calls in a single log transaction.
func MkRootDir(sb *Superblock_t) {
	LogBegin()
	defer LogEnd()
	inum := Ialloc(sb, T_DIR)
	if inum != RootIno {
		panic("root inode must be inode 1")
	}
	Dirlink(sb, RootIno, ".", RootIno)
	Dirlink(sb, RootIno, "..", RootIno)
}

/// MkDir allocates a fresh empty directory inode linked into parent under
/// name, with '.' and '..' entries installed. Wraps Ialloc and the three
/// Dirlink calls in a single log transaction.
func MkDir(sb *Superblock_t, parent int, name string) int {
	LogBegin()
	defer LogEnd()
	inum := Ialloc(sb, T_DIR)
	Dirlink(sb, inum, ".", inum)
	Dirlink(sb, inum, "..", parent)
	Dirlink(sb, parent, name, inum)
	return inum
}

/// Namei resolves a slash-separated absolute path to an inode number,
/// the small path-walking helper the snapshot CLIs (print_addr, append)
/// and the get_addrs/get_indirect_addrs syscalls need on
/// top of the single-component Dirlookup above.
func Namei(sb *Superblock_t, path string) (int, bool) {
	inum := RootIno
	cur := path
	for len(cur) > 0 && cur[0] == '/' {
		cur = cur[1:]
	}
	for len(cur) > 0 {
		slash := -1
		for i := 0; i < len(cur); i++ {
			if cur[i] == '/' {
				slash = i
				break
			}
		}
		var comp string
		if slash < 0 {
			comp = cur
			cur = ""
		} else {
			comp = cur[:slash]
			cur = cur[slash+1:]
		}
		if comp == "" {
			continue
		}
		next, ok := Dirlookup(sb, inum, comp)
		if !ok {
			return 0, false
		}
		inum = next
	}
	return inum, true
}
