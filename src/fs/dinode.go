package fs

// NDIRECT and NINDIRECT are the classic xv6 inode block-address counts
// spec.md §4.9/§8 names directly ("bn < NDIRECT", "addrs[0..=NDIRECT]").
const NDIRECT = 12
const NINDIRECT = BSIZE / 4
const MAXFILE = NDIRECT + NINDIRECT

// Inode type tags.
const (
	T_FREE = 0
	T_DIR  = 1
	T_FILE = 2
	T_DEV  = 3
)

const dinodeSize = 64 // bytes per on-disk inode slot

/// Dinode_t is the on-disk inode format.
type Dinode_t struct {
	Type  int16
	Major int16
	Minor int16
	Nlink int16
	Size  uint32
	Addrs [NDIRECT + 1]uint32
}

func dinodesPerBlock() int {
	return BSIZE / dinodeSize
}

// inodeBlockFor returns the block holding inode inum and the inode's
// offset within that block.
func inodeBlockFor(sb *Superblock_t, inum int) (int, int) {
	perblk := dinodesPerBlock()
	return sb.Inodeblock() + inum/perblk, (inum % perblk) * dinodeSize
}

func readDinode(sb *Superblock_t, inum int) *Dinode_t {
	blkno, off := inodeBlockFor(sb, inum)
	b := disk().Bread(blkno)
	return decodeDinode(b.Data[off : off+dinodeSize])
}

func writeDinode(sb *Superblock_t, inum int, di *Dinode_t) {
	blkno, off := inodeBlockFor(sb, inum)
	b := disk().Bread(blkno)
	encodeDinode(di, b.Data[off:off+dinodeSize])
	LogWrite(b)
}

func decodeDinode(buf []byte) *Dinode_t {
	di := &Dinode_t{}
	di.Type = int16(le16(buf[0:2]))
	di.Major = int16(le16(buf[2:4]))
	di.Minor = int16(le16(buf[4:6]))
	di.Nlink = int16(le16(buf[6:8]))
	di.Size = le32(buf[8:12])
	for i := 0; i < NDIRECT+1; i++ {
		off := 12 + i*4
		di.Addrs[i] = le32(buf[off : off+4])
	}
	return di
}

func encodeDinode(di *Dinode_t, buf []byte) {
	put16(buf[0:2], uint16(di.Type))
	put16(buf[2:4], uint16(di.Major))
	put16(buf[4:6], uint16(di.Minor))
	put16(buf[6:8], uint16(di.Nlink))
	put32(buf[8:12], di.Size)
	for i := 0; i < NDIRECT+1; i++ {
		off := 12 + i*4
		put32(buf[off:off+4], di.Addrs[i])
	}
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func put16(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
func put32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// Dirent_t is one directory entry: a fixed-size name plus inode number,
// the classic xv6 layout.
type Dirent_t struct {
	Inum uint16
	Name [14]byte
}

const direntSize = 16

func decodeDirent(buf []byte) Dirent_t {
	var d Dirent_t
	d.Inum = le16(buf[0:2])
	copy(d.Name[:], buf[2:16])
	return d
}

func encodeDirent(d Dirent_t, buf []byte) {
	put16(buf[0:2], d.Inum)
	copy(buf[2:16], d.Name[:])
}

func direntName(d Dirent_t) string {
	n := 0
	for n < len(d.Name) && d.Name[n] != 0 {
		n++
	}
	return string(d.Name[:n])
}
