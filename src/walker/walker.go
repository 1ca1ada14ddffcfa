// Package walker implements the Software Page Walker: a pure-software
// PDE/PTE walk over a two-level page directory, used whenever the kernel
// needs a translation without trusting the hardware MMU (spec.md §4.2).
//
// The teacher's vm package walks a real four-level long-mode page table
// installed via the hardware walker (mem/dmap.go, vm/pmap.go). Hardware
// paging is an explicit external collaborator here, so this package walks
// a plain two-level directory of mem.Pmap_t pages addressed through
// mem.Physmem.Dmap, grounded on classic xv6's pgdir_walk (the vocabulary
// spec.md itself uses: "PDE index", "PDE-Present").
package walker

import (
	"swxlate/src/mem"
)

// NPDENTRIES and NPTENTRIES are the number of entries in a directory or
// table page; both equal PGSIZE/8 since each mem.Pa_t slot is 8 bytes.
const NPDENTRIES = mem.PGSIZE / 8
const NPTENTRIES = mem.PGSIZE / 8

// PTSHIFT is the number of VA bits spanned by one page-table page
// (NPTENTRIES pages of PGSIZE bytes each).
const PTSHIFT uint = mem.PGSHIFT + 9

// PDSHIFT is the number of VA bits spanned by one directory entry's
// subtree (one full page table, NPTENTRIES*PGSIZE bytes).
const PDSHIFT uint = PTSHIFT

/// Pdx returns the page-directory index for a virtual address.
func Pdx(va uintptr) uintptr {
	return (va >> PDSHIFT) & uintptr(NPDENTRIES-1)
}

/// Ptx returns the page-table index for a virtual address.
func Ptx(va uintptr) uintptr {
	return (va >> mem.PGSHIFT) & uintptr(NPTENTRIES-1)
}

// NotMapped is the sentinel flags value SwVtop and PgdirWalk return when
// any level of the walk is absent.
const NotMapped mem.Pa_t = 0

/// PgdirWalk locates the PTE slot for va within pgdir, the top-level
/// directory page. When create is true and the PDE is not present, a
/// fresh page-table page is allocated (kernel-owned, no pid) and linked
/// in; when create is false, a missing PDE yields (nil, false).
func PgdirWalk(pgdir *mem.Pmap_t, va uintptr, create bool) (*mem.Pa_t, bool) {
	pde := &pgdir[Pdx(va)]
	var pt *mem.Pmap_t
	if *pde&mem.PTE_P != 0 {
		pt = mem.Pg2pmap(mem.Physmem.Dmap(*pde & mem.PTE_ADDR))
	} else {
		if !create {
			return nil, false
		}
		pa, ok := mem.Physmem.Kalloc(0, false)
		if !ok {
			return nil, false
		}
		pt = mem.Pg2pmap(mem.Physmem.Dmap(pa))
		*pt = mem.Pmap_t{}
		*pde = pa | mem.PTE_P | mem.PTE_W | mem.PTE_U
	}
	return &pt[Ptx(va)], true
}

/// SwVtop performs the two-level walk described in spec.md §4.2: computes
/// the PDE index, checks PDE-Present, fetches the PTE, and combines the
/// frame with the page offset. mapped is false if either level of the
/// walk is absent.
func SwVtop(pgdir *mem.Pmap_t, va uintptr) (pa mem.Pa_t, flags mem.Pa_t, mapped bool) {
	pte, ok := PgdirWalk(pgdir, va, false)
	if !ok {
		return 0, NotMapped, false
	}
	if *pte&mem.PTE_P == 0 && *pte&mem.PTE_T == 0 {
		return 0, NotMapped, false
	}
	frame := *pte & mem.PTE_ADDR
	off := mem.Pa_t(va) & mem.PGOFFSET
	flags = *pte &^ mem.PTE_ADDR
	return frame | off, flags, true
}
