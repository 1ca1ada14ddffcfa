package fs

import "swxlate/src/stat"

// Stat fills a stat.Stat_t from inum's on-disk inode, the same
// Stat_t/Wxxx-setter convention the teacher's fs layer uses to hand file
// metadata back across the syscall boundary (spec.md's debug CLI surface
// — print_addr — reports this alongside addresses).
func Stat(sb *Superblock_t, inum int) *stat.Stat_t {
	di := readDinode(sb, inum)
	st := &stat.Stat_t{}
	st.Wdev(0)
	st.Wino(uint(inum))
	st.Wmode(uint(di.Type))
	st.Wsize(uint(di.Size))
	st.Wrdev(uint(di.Major)<<16 | uint(di.Minor))
	return st
}
