package fs

// snapfs.go holds the filesystem-layer bookkeeping the Snapshot Manager
// (src/snap) drives: locating/creating the reserved /snapshot directory
// and its smap file, and counting inodes for admission control
// (spec.md §4.10).

const snapshotDirName = "snapshot"
const smapFileName = "smap"

/// EnsureSnapshotDir returns the inode number of /snapshot, creating it
/// under the root directory if it does not yet exist (spec.md §4.10 step
/// 2: "Ensure /snapshot exists (create if missing)").
func EnsureSnapshotDir(sb *Superblock_t) int {
	if inum, ok := Dirlookup(sb, RootIno, snapshotDirName); ok {
		return inum
	}
	return MkDir(sb, RootIno, snapshotDirName)
}

// smapFileInode looks up /snapshot/smap without creating either it or
// /snapshot itself.
func smapFileInode(sb *Superblock_t) (int, bool) {
	snapIno, ok := Dirlookup(sb, RootIno, snapshotDirName)
	if !ok {
		return 0, false
	}
	return Dirlookup(sb, snapIno, smapFileName)
}

// ensureSmapInode finds or creates /snapshot/smap, opening its own log
// transaction only along the creation path. Must be called with no
// transaction already active (PersistSmap calls this before opening its
// own, so the two never nest).
func ensureSmapInode(sb *Superblock_t) int {
	if inum, ok := smapFileInode(sb); ok {
		return inum
	}
	snapIno := EnsureSnapshotDir(sb)
	LogBegin()
	inum := Ialloc(sb, T_FILE)
	Dirlink(sb, snapIno, smapFileName, inum)
	LogEnd()
	return inum
}

/// Icount recursively counts the directory entries rooted at dirInum,
/// excluding "." and "..", and excluding any entry named skipName at the
/// top level only (used to exclude /snapshot itself from the live-tree
/// count, spec.md §4.10 step 1's "icount(/)").
func Icount(sb *Superblock_t, dirInum int, skipName string) int {
	return icountRec(sb, dirInum, skipName, true)
}

func icountRec(sb *Superblock_t, dirInum int, skipName string, top bool) int {
	di := readDinode(sb, dirInum)
	n := int(di.Size) / direntSize
	var buf [direntSize]byte
	count := 0
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
		if top && skipName != "" && name == skipName {
			continue
		}
		count++
		child := readDinode(sb, int(d.Inum))
		if child.Type == T_DIR {
			count += icountRec(sb, int(d.Inum), "", false)
		}
	}
	return count
}
