// Package fault implements the Page-Fault Handler: the state machine that
// dispatches a T_PGFLT trap to either the copy-on-write path or the
// software-TLB refill path (spec.md §4.6).
//
// Grounded on the teacher's Sys_pgfault (biscuit/src/vm/as.go): the same
// branch structure over (write-fault, PTE_C, PTE_P/PTE_T) survives, but
// the hardware-walker/TLB-shootdown calls (runtime.Condflush, tlb_shootdown)
// are replaced with the package's own FlushHW hook, since real hardware
// paging is an explicit external collaborator (spec.md §1).
package fault

import (
	"github.com/sirupsen/logrus"

	"swxlate/src/caller"
	"swxlate/src/defs"
	"swxlate/src/ipt"
	"swxlate/src/mem"
	"swxlate/src/tlb"
	"swxlate/src/vatrack"
	"swxlate/src/walker"
)

// log is the structured logger fatal fault paths report through, paired
// with the teacher's caller.Callerdump for diagnosing the state that led
// to an unrecoverable fault (spec.md §7's "kill the faulting process").
var log = logrus.New()

func logFatal(proc *Proc_t, va uintptr, reason string) {
	log.WithFields(logrus.Fields{
		"pid":    proc.Pid,
		"va":     va,
		"reason": reason,
	}).Error("fatal page fault")
	if log.IsLevelEnabled(logrus.DebugLevel) {
		caller.Callerdump(2)
	}
}

/// Proc_t is the minimal per-process state the fault handler needs: a pid,
/// its page directory, and its VA tracker. The real process table and
/// scheduler are external collaborators (spec.md §1); this is the thin
/// slice of process state the address-translation core actually touches.
type Proc_t struct {
	Pid      defs.Pid_t
	Pgdir    *mem.Pmap_t
	Tracker  *vatrack.Tracker_t
	KernBase uintptr
}

// FlushHW is invoked after all software translation state for a fault has
// been updated, standing in for the teacher's hardware TLB shootdown
// (an external collaborator). The zero value is a no-op; callers wire a
// real implementation if one exists.
var FlushHW = func(pid defs.Pid_t, va uintptr) {}

/// Result_t reports how a fault was resolved, for logging/testing.
type Result_t int

const (
	ResultFatal Result_t = iota
	ResultCOWClaimed
	ResultCOWCopied
	ResultRescueRefill
	ResultRefill
)

/// Handle dispatches one page fault for va with hardware error code ecode
/// (whose PTE_W bit distinguishes read from write) against proc. It
/// returns the resolution and, on ResultFatal, defs.Err_t describing why.
func Handle(proc *Proc_t, va uintptr, ecode mem.Pa_t) (Result_t, defs.Err_t) {
	pg := va &^ uintptr(mem.PGOFFSET)
	pte, ok := walker.PgdirWalk(proc.Pgdir, pg, false)
	if !ok {
		// No PTE at all: fatal, per spec.md §4.6 case 1.
		logFatal(proc, pg, "no pte")
		return ResultFatal, -defs.EFAULT
	}

	iswrite := ecode&mem.PTE_W != 0

	if iswrite && *pte&mem.PTE_C != 0 {
		return cowFault(proc, pg, pte)
	}

	isUser := pg < proc.KernBase || proc.KernBase == 0
	if *pte&mem.PTE_T == 0 && *pte&mem.PTE_P == 0 {
		if !isUser {
			logFatal(proc, pg, "kernel-range fault with no present/tracked pte")
			return ResultFatal, -defs.EFAULT
		}
		*pte |= mem.PTE_T | mem.PTE_U
		return refill(proc, pg, pte, ResultRescueRefill)
	}

	if *pte&mem.PTE_T != 0 && *pte&mem.PTE_P == 0 {
		return refill(proc, pg, pte, ResultRefill)
	}

	logFatal(proc, pg, "unreachable pte state")
	return ResultFatal, -defs.EFAULT
}

// cowFault implements spec.md §4.6 case 2. Lock order: frame-tracker ->
// IPT -> TLB (spec.md §4.6, §5).
func cowFault(proc *Proc_t, pg uintptr, pte *mem.Pa_t) (Result_t, defs.Err_t) {
	oldpa := *pte & mem.PTE_ADDR
	r := mem.Physmem.Refcnt(oldpa)

	if r == 1 {
		*pte = (*pte &^ mem.PTE_C) | mem.PTE_W
		FlushHW(proc.Pid, pg)
		return ResultCOWClaimed, 0
	}

	newpa, ok := mem.Physmem.Kalloc(proc.Pid, true)
	if !ok {
		return ResultFatal, -defs.ENOMEM
	}
	*mem.Physmem.Dmap(newpa) = *mem.Physmem.Dmap(oldpa)

	*pte = (newpa & mem.PTE_ADDR) | (*pte &^ mem.PTE_ADDR &^ mem.PTE_C) | mem.PTE_W

	ipt.Table.Remove(pg, oldpa, proc.Pid)
	ipt.Table.Insert(pg, newpa, *pte, proc.Pid)
	mem.Physmem.Kfree(oldpa)

	FlushHW(proc.Pid, pg)
	return ResultCOWCopied, 0
}

// refill implements spec.md §4.6 case 4 (the rescue path in case 3 falls
// through into it).
func refill(proc *Proc_t, pg uintptr, pte *mem.Pa_t, result Result_t) (Result_t, defs.Err_t) {
	pa := *pte & mem.PTE_ADDR
	flags := *pte &^ mem.PTE_ADDR

	if cachedPa, _, hit := tlb.Table.Lookup(proc.Pid, pg); !hit || cachedPa != pa {
		tlb.Table.Alloc(proc.Pid, pg, pa, flags)
	}

	if !ipt.Table.Insert(pg, pa, flags&^mem.PTE_T, proc.Pid) {
		return ResultFatal, -defs.ENOMEM
	}

	proc.Tracker.Track(pg, func(demoted uintptr) {
		demotePte(proc, demoted)
	})

	*pte = (pa & mem.PTE_ADDR) | (flags &^ mem.PTE_T) | mem.PTE_P

	FlushHW(proc.Pid, pg)
	return result, 0
}

// demotePte strips Present and reasserts PTE_T on a VA the tracker is
// evicting, so the page traps again on next access (spec.md §4.5, §9
// "Present-bit emulation").
func demotePte(proc *Proc_t, va uintptr) {
	pte, ok := walker.PgdirWalk(proc.Pgdir, va, false)
	if !ok || *pte&mem.PTE_P == 0 {
		return
	}
	*pte = (*pte &^ mem.PTE_P) | mem.PTE_T
}

/// Exit reclaims all translation resources for proc: VA tracker flush (with
/// demotion, though the process is departing so it is mostly bookkeeping),
/// full IPT removal, and TLB invalidation by pid (spec.md §4.5, §5).
func Exit(proc *Proc_t) {
	proc.Tracker.Flush(func(va uintptr) { demotePte(proc, va) })
	ipt.Table.RemoveAllForPid(proc.Pid)
	tlb.Table.InvalidatePid(proc.Pid)
}
