package kern

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"swxlate/src/circbuf"
	"swxlate/src/defs"
	"swxlate/src/fs"
	"swxlate/src/ipt"
	"swxlate/src/mem"
	"swxlate/src/snap"
	"swxlate/src/stat"
	"swxlate/src/tlb"
	"swxlate/src/walker"
)

// console is the kernel console ring buffer hello_number writes its
// greeting to (spec.md §6, SPEC_FULL.md §14).
var console = func() *circbuf.Circbuf_t {
	cb := &circbuf.Circbuf_t{}
	if err := cb.Init(mem.PGSIZE, defs.NoPid); err != 0 {
		panic("kern: failed to allocate console buffer")
	}
	return cb
}()

// Log is the structured logger every syscall and the CLIs share, grounded
// on the ambient-stack decision to use logrus (SPEC_FULL.md §1).
var Log = logrus.New()

// HelloNumber implements spec.md §6's hello_number: prints a greeting to
// the kernel console and returns n*2.
func HelloNumber(n int32) int32 {
	msg := fmt.Sprintf("Hello, xv6! Your number is %d\n", n)
	console.Write([]byte(msg))
	Log.WithField("n", n).Info("hello_number")
	return n * 2
}

// ConsoleSnapshot returns the console ring buffer's current contents,
// oldest first, for diagnostics and tests.
func ConsoleSnapshot() []byte {
	return console.Snapshot()
}

// Procinfo_t is the structure get_procinfo copies out (spec.md §6), plus
// the liveness flag and accumulated rusage (src/accnt's To_rusage layout)
// SPEC_FULL.md §13 extends it with.
type Procinfo_t struct {
	Pid    defs.Pid_t
	Ppid   defs.Pid_t
	State  string
	Sz     uint
	Name   [16]byte
	Alive  bool
	Rusage []uint8
}

// GetProcinfo fills out with pid's record, or caller's own when pid <= 0
// (spec.md §6). The caller's own syscall-handling time is charged to its
// accounting record before return (SPEC_FULL.md §13).
func GetProcinfo(caller *Proc_t, pid defs.Pid_t, out *Procinfo_t) defs.Err_t {
	if caller != nil {
		start := caller.Accnt.Now()
		defer caller.Accnt.Finish(start)
	}
	p, ok := resolveCaller(caller, pid)
	if !ok {
		return -defs.ENOENT
	}
	out.Pid = p.Pid
	out.Ppid = p.Ppid
	out.State = p.State
	out.Sz = p.Sz
	out.Name = p.Name
	out.Alive = p.Tnote.Alive
	out.Rusage = p.Accnt.Fetch()
	return 0
}

// Vtop software-walks caller's page directory for va, per spec.md §6. The
// returned flags have PTE_T rewritten to PTE_P, per the documented
// syscall contract ("on return flags_out has PTE_T rewritten to PTE_P").
//
// vtop never trusts the MMU's Present bit: after the software walk it
// also consults the software TLB, installing the translation on a miss,
// which is why repeated calls over the same range move from misses to
// hits (spec.md §8 scenario 5) even though the walk alone would return
// the same answer.
//
// The time spent servicing the call is charged to caller's accounting
// record as system time (SPEC_FULL.md §13).
func Vtop(caller *Proc_t, va uintptr) (pa uint32, flags uint32, err defs.Err_t) {
	if caller == nil {
		return 0, 0, -defs.EFAULT
	}
	start := caller.Accnt.Now()
	defer caller.Accnt.Finish(start)
	p, f, mapped := walker.SwVtop(caller.Pgdir, va)
	if !mapped {
		return 0, 0, -defs.EFAULT
	}
	if f&mem.PTE_T != 0 {
		f = (f &^ mem.PTE_T) | mem.PTE_P
	}
	if _, _, hit := tlb.Table.Lookup(caller.Pid, va); !hit {
		tlb.Table.Alloc(caller.Pid, va, mem.Pa_t(p), mem.Pa_t(f))
	}
	return uint32(p), uint32(f), 0
}

// VEntry_t is one (pid, va, flags) record phys2virt copies out.
type VEntry_t struct {
	Pid   defs.Pid_t
	Va    uintptr
	Flags uint32
}

// Phys2Virt copies up to max (pid, va, flags) entries from the IPT bucket
// for paPage, per spec.md §6.
func Phys2Virt(paPage uint32, max int) ([]VEntry_t, defs.Err_t) {
	if max < 0 {
		return nil, -defs.EINVAL
	}
	if max == 0 {
		return []VEntry_t{}, 0
	}
	entries := ipt.Table.Head(mem.Pa_t(paPage), max)
	out := make([]VEntry_t, len(entries))
	for i, e := range entries {
		out[i] = VEntry_t{Pid: e.Pid, Va: e.Va, Flags: uint32(e.Flags)}
	}
	return out, 0
}

// DumpPhysmemInfo streams at most max frame records in frame-index order
// (spec.md §6).
func DumpPhysmemInfo(max int) ([]mem.FrameRecord_t, defs.Err_t) {
	if max < 0 {
		return nil, -defs.EINVAL
	}
	buf := make([]mem.FrameRecord_t, max)
	n := mem.Physmem.Dump(buf, max)
	return buf[:n], 0
}

// DumpPhysmemInfoPid is DumpPhysmemInfo restricted to frames owned by pid,
// backing "memdump -p pid" (spec.md §6 CLI surface).
func DumpPhysmemInfoPid(pid defs.Pid_t, max int) ([]mem.FrameRecord_t, defs.Err_t) {
	if max < 0 {
		return nil, -defs.EINVAL
	}
	buf := make([]mem.FrameRecord_t, max)
	n := mem.Physmem.DumpPid(pid, buf, max)
	return buf[:n], 0
}

// TlbInfo returns the current software-TLB hit/miss counters (spec.md §6).
func TlbInfo() (hits uint32, misses uint32) {
	return tlb.Table.Info()
}

// Snapshot result codes, per spec.md §6.
const (
	SnapOK           = 0
	SnapErrGeneric   = -1
	SnapErrOutOfInos = -2
)

// SnapshotCreate wraps snap.Create, translating its error into the
// numeric codes spec.md §6 documents.
func SnapshotCreate(sb *fs.Superblock_t) int32 {
	id, err := snap.Create(sb)
	if err != nil {
		Log.WithError(err).Warn("snapshot_create failed")
		if err == snap.ErrOutOfInodes {
			return SnapErrOutOfInos
		}
		return SnapErrGeneric
	}
	Log.WithField("id", id).Info("snapshot_create")
	return int32(id)
}

// SnapshotRollback wraps snap.Rollback.
func SnapshotRollback(sb *fs.Superblock_t, id uint32) int32 {
	err := snap.Rollback(sb, id)
	if err != nil {
		Log.WithError(err).WithField("id", id).Warn("snapshot_rollback failed")
		if err == snap.ErrOutOfInodes {
			return SnapErrOutOfInos
		}
		return SnapErrGeneric
	}
	Log.WithField("id", id).Info("snapshot_rollback")
	return SnapOK
}

// SnapshotDelete wraps snap.Delete.
func SnapshotDelete(sb *fs.Superblock_t, id uint32) int32 {
	err := snap.Delete(sb, id)
	if err != nil {
		Log.WithError(err).WithField("id", id).Warn("snapshot_delete failed")
		return SnapErrGeneric
	}
	Log.WithField("id", id).Info("snapshot_delete")
	return SnapOK
}

// GetAddrs copies path's direct-address array (spec.md §6 debug syscall).
func GetAddrs(sb *fs.Superblock_t, path string) ([fs.NDIRECT + 1]uint32, defs.Err_t) {
	inum, ok := fs.Namei(sb, path)
	if !ok {
		return [fs.NDIRECT + 1]uint32{}, -defs.ENOENT
	}
	return fs.InodeAddrs(sb, inum), 0
}

// GetIndirectAddrs copies path's referenced indirect block (spec.md §6
// debug syscall).
func GetIndirectAddrs(sb *fs.Superblock_t, path string) ([]uint32, defs.Err_t) {
	inum, ok := fs.Namei(sb, path)
	if !ok {
		return nil, -defs.ENOENT
	}
	return fs.IndirectAddrs(sb, inum), 0
}

// Stat resolves path and returns its metadata, the debug-CLI counterpart
// to GetAddrs/GetIndirectAddrs.
func Stat(sb *fs.Superblock_t, path string) (*stat.Stat_t, defs.Err_t) {
	inum, ok := fs.Namei(sb, path)
	if !ok {
		return nil, -defs.ENOENT
	}
	return fs.Stat(sb, inum), 0
}
