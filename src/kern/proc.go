// Package kern implements the syscall layer of spec.md §6: thin functions
// translating the address-translation and snapshot cores into the numeric
// result conventions the CLI surface (cmd/*) expects.
//
// The process table and scheduler are explicit external collaborators
// (spec.md §1); this package still needs *a* minimal process record to
// back get_procinfo and the fault handler's process-exit reclaim path, so
// it keeps a pid-indexed registry backed by src/hashtable's bucket-chained
// table instead of the teacher's goroutine-local lookup (runtime.Gptr,
// unavailable in stock Go — see SPEC_FULL.md §0), grounded on the
// teacher's accnt.Accnt_t (time accounting) and tinfo.Tnote_t
// (liveness/kill bookkeeping).
package kern

import (
	"swxlate/src/accnt"
	"swxlate/src/defs"
	"swxlate/src/fault"
	"swxlate/src/hashtable"
	"swxlate/src/mem"
	"swxlate/src/tinfo"
	"swxlate/src/vatrack"
)

// Proc_t is the thin process record the syscall layer operates on: the
// fault handler's view of a process (pid, page directory, VA tracker)
// plus the bookkeeping get_procinfo reports.
type Proc_t struct {
	fault.Proc_t
	Ppid  defs.Pid_t
	State string
	Name  [16]byte
	Sz    uint
	Accnt accnt.Accnt_t
	Tnote tinfo.Tnote_t
}

// Process states reported by get_procinfo, mirroring the teacher's small
// fixed vocabulary of scheduler states.
const (
	StateRunnable = "RUNNABLE"
	StateRunning  = "RUNNING"
	StateDead     = "DEAD"
)

// procBuckets sizes the registry for a modest simulated machine; pids are
// sparse and short-lived (fork/exit churn), which is exactly the
// lookup-heavy, resize-rare workload hashtable.Hashtable_t targets.
const procBuckets = 64

var procs = hashtable.MkHash(procBuckets)

// NewProc registers a fresh process pid with parent ppid and the given
// name, backed by a new page directory and VA tracker, and returns its
// record. Callers (tests, memstress-style load generators) drive the
// address-translation and syscall entry points against the returned
// *Proc_t.
func NewProc(pid, ppid defs.Pid_t, name string) *Proc_t {
	pgdir, ok := mem.Physmem.Kalloc(pid, false)
	if !ok {
		panic("kern: out of frames formatting a fresh page directory")
	}
	p := &Proc_t{
		Ppid:  ppid,
		State: StateRunnable,
	}
	copy(p.Name[:], name)
	p.Pid = pid
	p.Pgdir = mem.Pg2pmap(mem.Physmem.Dmap(pgdir))
	p.Tracker = vatrack.New()
	p.Tnote.Alive = true

	procs.Set(int32(pid), p)
	return p
}

// Lookup returns the registered process record for pid, if any.
func Lookup(pid defs.Pid_t) (*Proc_t, bool) {
	v, ok := procs.Get(int32(pid))
	if !ok {
		return nil, false
	}
	return v.(*Proc_t), true
}

// ExitProc reclaims pid's translation resources (spec.md §4.5/§5: full TLB
// invalidation, IPT removal, VA tracker flush) and removes it from the
// registry. A process already marked dead (double exit) is a no-op: its
// resources were reclaimed the first time through. Before removal, pid's
// accumulated accounting record is merged into its parent's, the classic
// wait4 rusage-inheritance behavior (SPEC_FULL.md §13).
func ExitProc(pid defs.Pid_t) {
	p, ok := Lookup(pid)
	if !ok || !p.Tnote.Alive {
		return
	}
	procs.Del(int32(pid))
	p.State = StateDead
	p.Tnote.Alive = false
	if parent, ok := Lookup(p.Ppid); ok {
		parent.Accnt.Add(&p.Accnt)
	}
	fault.Exit(&p.Proc_t)
}

// resolveCaller implements the "pid <= 0 => caller" convention spec.md §6
// documents for get_procinfo.
func resolveCaller(caller *Proc_t, pid defs.Pid_t) (*Proc_t, bool) {
	if pid <= 0 {
		return caller, caller != nil
	}
	return Lookup(pid)
}
