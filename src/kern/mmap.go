package kern

import (
	"swxlate/src/defs"
	"swxlate/src/fault"
	"swxlate/src/ipt"
	"swxlate/src/mem"
	"swxlate/src/walker"
)

// handleFault drives the page-fault state machine for a simulated trap at
// va with error code ecode (read or write), per spec.md §4.6.
func handleFault(p *Proc_t, va uintptr, ecode mem.Pa_t) (fault.Result_t, defs.Err_t) {
	return fault.Handle(&p.Proc_t, va, ecode)
}

// Map installs a fresh present, writable, user mapping at pg (page-
// aligned) backed by a newly allocated frame, records it in the IPT, and
// returns the frame's physical address. Grounded on the teacher's
// Vm_t.Page_insert (biscuit/src/vm/as.go): allocate-then-install, generalized
// from biscuit's VMA-backed address space to this package's plain
// two-level mem.Pmap_t (spec.md §4.2's software walker).
func (p *Proc_t) Map(pg uintptr) (mem.Pa_t, defs.Err_t) {
	start := p.Accnt.Now()
	defer p.Accnt.Finish(start)
	pa, ok := mem.Physmem.Kalloc(p.Pid, true)
	if !ok {
		return 0, -defs.ENOMEM
	}
	pte, ok := walker.PgdirWalk(p.Pgdir, pg, true)
	if !ok {
		mem.Physmem.Kfree(pa)
		return 0, -defs.ENOMEM
	}
	if *pte&mem.PTE_P != 0 {
		mem.Physmem.Kfree(pa)
		return 0, -defs.EEXIST
	}
	*pte = pa | mem.PTE_P | mem.PTE_W | mem.PTE_U
	if !ipt.Table.Insert(pg, pa, *pte, p.Pid) {
		*pte = 0
		mem.Physmem.Kfree(pa)
		return 0, -defs.ENOMEM
	}
	p.Sz += uint(mem.PGSIZE)
	return pa, 0
}

// ForkChild materializes a COW child of parent: pg must already be a
// present, writable mapping in parent. The child gets a read-only,
// COW-pending mapping of the same frame, the parent's own mapping is
// downgraded to COW-pending too (the classic fork-time "both sides
// become COW" step spec.md §4.6's PTE_C invariant requires), and the
// frame's refcount is bumped. Mirrors the teacher's fork-time use of
// Page_insert with vempty=false and perms stripped of PTE_W.
func ForkChild(parent, child *Proc_t, pg uintptr) defs.Err_t {
	start := parent.Accnt.Now()
	defer parent.Accnt.Finish(start)
	ppte, ok := walker.PgdirWalk(parent.Pgdir, pg, false)
	if !ok || *ppte&mem.PTE_P == 0 {
		return -defs.EFAULT
	}
	pa := *ppte & mem.PTE_ADDR
	flags := (*ppte &^ mem.PTE_ADDR &^ mem.PTE_W) | mem.PTE_C

	mem.Physmem.Refup(pa)
	*ppte = pa | flags

	cpte, ok := walker.PgdirWalk(child.Pgdir, pg, true)
	if !ok {
		mem.Physmem.Kfree(pa)
		return -defs.ENOMEM
	}
	*cpte = pa | flags
	if !ipt.Table.Insert(pg, pa, *cpte, child.Pid) {
		mem.Physmem.Kfree(pa)
		return -defs.ENOMEM
	}
	ipt.Table.Insert(pg, pa, *ppte, parent.Pid)
	child.Sz += uint(mem.PGSIZE)
	return 0
}

// MapLazy allocates a frame for pg but leaves the PTE marked PTE_T
// instead of PTE_P: a demand-paged placeholder translation that vtop can
// report without ever running the fault handler, and that a real access
// (via Touch or WriteByte) resolves through the refill path of spec.md
// §4.6 case 4. It is not recorded in the IPT until refill runs, mirroring
// the teacher's distinction between a reserved VMA and an installed PTE.
func (p *Proc_t) MapLazy(pg uintptr) (mem.Pa_t, defs.Err_t) {
	start := p.Accnt.Now()
	defer p.Accnt.Finish(start)
	pa, ok := mem.Physmem.Kalloc(p.Pid, true)
	if !ok {
		return 0, -defs.ENOMEM
	}
	pte, ok := walker.PgdirWalk(p.Pgdir, pg, true)
	if !ok {
		mem.Physmem.Kfree(pa)
		return 0, -defs.ENOMEM
	}
	if *pte != 0 {
		mem.Physmem.Kfree(pa)
		return 0, -defs.EEXIST
	}
	*pte = pa | mem.PTE_T | mem.PTE_U
	p.Sz += uint(mem.PGSIZE)
	return pa, 0
}

// Touch drives a simulated access to va through the fault handler,
// resolving a lazily-mapped page via the refill path.
func (p *Proc_t) Touch(va uintptr) (fault.Result_t, defs.Err_t) {
	start := p.Accnt.Now()
	defer p.Accnt.Finish(start)
	return handleFault(p, va, 0)
}

// WriteByte performs a simulated user write of b to va, running it
// through the fault handler exactly as a real write-protection trap
// would (spec.md §4.6): a COW-marked page is resolved first, then the
// byte is stored via the frame's backing page. The returned Result_t is
// fault.ResultCOWClaimed or fault.ResultCOWCopied when a COW fault ran,
// or the zero value when the page was already writable.
func (p *Proc_t) WriteByte(va uintptr, b byte) (fault.Result_t, defs.Err_t) {
	start := p.Accnt.Now()
	defer p.Accnt.Finish(start)
	pte, ok := walker.PgdirWalk(p.Pgdir, va&^uintptr(mem.PGOFFSET), false)
	if !ok {
		return 0, -defs.EFAULT
	}
	var res fault.Result_t
	if *pte&mem.PTE_C != 0 {
		var err defs.Err_t
		res, err = handleFault(p, va, mem.PTE_W)
		if err != 0 {
			return res, err
		}
		pte, ok = walker.PgdirWalk(p.Pgdir, va&^uintptr(mem.PGOFFSET), false)
		if !ok {
			return res, -defs.EFAULT
		}
	}
	pa := *pte & mem.PTE_ADDR
	off := mem.Pa_t(va) & mem.PGOFFSET
	bytes := mem.Pg2bytes(mem.Physmem.Dmap(pa))
	bytes[off] = b
	return res, 0
}
