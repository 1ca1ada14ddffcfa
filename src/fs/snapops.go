package fs

// Icopy and Irestore are the inode-level primitives spec.md §4.10 names
// (icopy, irestore): allocate a shadow inode that shares data-block
// addresses with a source inode, protecting the shared blocks via Smapi.

/// InodeType reports inum's on-disk type tag (T_DIR/T_FILE/T_DEV).
func InodeType(sb *Superblock_t, inum int) int16 {
	return readDinode(sb, inum).Type
}

/// IsDevice reports whether inum is a device node.
func IsDevice(sb *Superblock_t, inum int) bool {
	return InodeType(sb, inum) == T_DEV
}

/// InodeSize reports inum's current byte size, the offset append-style
/// callers (cmd/append) write new data at.
func InodeSize(sb *Superblock_t, inum int) int {
	return int(readDinode(sb, inum).Size)
}

/// CreateFile allocates a fresh regular-file inode named name under
/// parent, the mk_test_file/append CLIs' "create if absent" entry point.
func CreateFile(sb *Superblock_t, parent int, name string) int {
	LogBegin()
	defer LogEnd()
	inum := Ialloc(sb, T_FILE)
	Dirlink(sb, parent, name, inum)
	return inum
}

/// ListDir returns the (name, inum) pairs of dirInum's entries, excluding
/// "." and "..".
func ListDir(sb *Superblock_t, dirInum int) []struct {
	Name string
	Inum int
} {
	di := readDinode(sb, dirInum)
	n := int(di.Size) / direntSize
	var buf [direntSize]byte
	var out []struct {
		Name string
		Inum int
	}
	for i := 0; i < n; i++ {
		Readi(sb, dirInum, buf[:], i*direntSize)
		d := decodeDirent(buf[:])
		if d.Inum == 0 {
			continue
		}
		name := direntName(d)
		if name == "." || name == ".." {
			continue
		}
		out = append(out, struct {
			Name string
			Inum int
		}{name, int(d.Inum)})
	}
	return out
}

/// Icopy allocates a fresh regular-file inode under parent named name
/// that shares srcInum's direct and indirect block addresses verbatim,
/// then protects those blocks in the snapshot bitmap (spec.md §4.10 step
/// 4's bullet for regular files).
func Icopy(sb *Superblock_t, srcInum int, parent int, name string) int {
	LogBegin()
	defer LogEnd()
	src := readDinode(sb, srcInum)
	newInum := Ialloc(sb, T_FILE)
	shadow := readDinode(sb, newInum)
	shadow.Addrs = src.Addrs
	shadow.Size = src.Size
	shadow.Nlink = 1
	writeDinode(sb, newInum, shadow)
	Dirlink(sb, parent, name, newInum)
	Smapi(sb, srcInum)
	return newInum
}

/// Irestore is Icopy's mirror image for rollback: it allocates a fresh
/// inode under parent named name sharing snapInum's block addresses
/// (spec.md §4.10 "irestore"), protecting snapInum's blocks first.
func Irestore(sb *Superblock_t, snapInum int, parent int, name string) int {
	Smapi(sb, snapInum)
	LogBegin()
	defer LogEnd()
	snap := readDinode(sb, snapInum)
	newInum := Ialloc(sb, T_FILE)
	restored := readDinode(sb, newInum)
	restored.Addrs = snap.Addrs
	restored.Size = snap.Size
	restored.Nlink = 1
	writeDinode(sb, newInum, restored)
	Dirlink(sb, parent, name, newInum)
	return newInum
}

/// UnlinkRecursive removes every entry under dirInum (recursively
/// descending into sub-directories first), then leaves dirInum itself
/// empty for the caller to unlink from its own parent. Used by
/// snapshot_delete (spec.md §4.10).
func UnlinkRecursive(sb *Superblock_t, dirInum int) {
	for _, ent := range ListDir(sb, dirInum) {
		if InodeType(sb, ent.Inum) == T_DIR {
			// Recurse before opening this entry's own transaction: a
			// child's transactions must be closed before the parent's
			// unlink/free opens its own (log transactions do not nest).
			UnlinkRecursive(sb, ent.Inum)
		}
		LogBegin()
		Ifree(sb, ent.Inum)
		Dirunlink(sb, dirInum, ent.Name)
		LogEnd()
	}
}

/// DataBlockIndex converts an absolute block number to its index in the
/// data region (the unit Smap operates on).
func DataBlockIndex(sb *Superblock_t, blockno int) int {
	return blockno - sb.Datablock()
}

/// InodeAddrs returns inum's direct-block array plus its indirect-block
/// pointer, the backing data for the get_addrs debug syscall (spec.md §6).
func InodeAddrs(sb *Superblock_t, inum int) [NDIRECT + 1]uint32 {
	return readDinode(sb, inum).Addrs
}

/// IndirectAddrs returns the block addresses recorded in inum's indirect
/// block (empty if inum has none), backing get_indirect_addrs.
func IndirectAddrs(sb *Superblock_t, inum int) []uint32 {
	di := readDinode(sb, inum)
	ind := di.Addrs[NDIRECT]
	if ind == 0 {
		return nil
	}
	ib := disk().Bread(int(ind))
	out := make([]uint32, NINDIRECT)
	for i := 0; i < NINDIRECT; i++ {
		off := i * 4
		out[i] = le32(ib.Data[off : off+4])
	}
	return out
}
