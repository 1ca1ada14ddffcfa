// Package mem implements the Frame Tracker: per-physical-frame metadata and
// reference counting over a fixed pool of PFNNUM simulated physical frames
// (spec.md §3/§4.1).
//
// The teacher (biscuit)'s mem package backs this with a real direct map of
// physical RAM, installed by manipulating CR4/CR3 and calling into a forked
// Go runtime (runtime.Cpuid, runtime.Vtop, runtime.CPUHint, ...). None of
// that exists in stock Go, and the hardware page-table walker/direct map
// are explicit external collaborators per spec.md §1, so this port
// represents each frame as an ordinary Go-heap page allocated on first use
// and addressed by frame index instead of by a real physical address, and
// drops the per-CPU free-list sharding: spec.md §5 permits "a single global
// lock per subsystem", and SMP-scalable structures are an explicit
// non-goal.
package mem

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"swxlate/src/defs"
	"swxlate/src/util"
)

/// PGSHIFT is the base-2 exponent for the page size.
const PGSHIFT uint = 12

/// PGSIZE is the size of a single page in bytes.
const PGSIZE int = 1 << PGSHIFT

/// PGOFFSET masks offsets within a page.
const PGOFFSET Pa_t = 0xfff

/// PGMASK masks the page number of an address.
const PGMASK Pa_t = ^(PGOFFSET)

/// PTE_P marks a page as present.
const PTE_P Pa_t = 1 << 0

/// PTE_W marks a page writable.
const PTE_W Pa_t = 1 << 1

/// PTE_U marks a page user-accessible.
const PTE_U Pa_t = 1 << 2

// PTE_T and PTE_C are the software-managed bits spec.md §3 adds over the
// standard Present/Writable/User triple: "temporarily managed by software
// TLB" and "COW pending" respectively.
const PTE_T Pa_t = 1 << 9
const PTE_C Pa_t = 1 << 10

/// PTE_ADDR extracts the address bits of a PTE.
const PTE_ADDR Pa_t = PGMASK

/// Pa_t represents a physical address (frame-index*PGSIZE + offset).
type Pa_t uintptr

/// Bytepg_t is a byte addressed page.
type Bytepg_t [PGSIZE]uint8

/// Pg_t is a generic page of 64-bit words, sized identically to Bytepg_t.
type Pg_t [PGSIZE / 8]uint64

/// Pmap_t is a page-table page: PGSIZE/8 page-table-entry slots.
type Pmap_t [PGSIZE / 8]Pa_t

/// Pg2bytes reinterprets a page of words as a page of bytes.
func Pg2bytes(pg *Pg_t) *Bytepg_t {
	return (*Bytepg_t)(unsafe.Pointer(pg))
}

/// Pg2pmap reinterprets a page of words as a page-table page.
func Pg2pmap(pg *Pg_t) *Pmap_t {
	return (*Pmap_t)(unsafe.Pointer(pg))
}

// PFNNUM is the number of simulated physical frames (spec.md §3).
const PFNNUM = 60000

const noFrame uint32 = ^uint32(0)

/// Physpg_t is the per-frame metadata record described in spec.md §3.
type Physpg_t struct {
	Allocated bool
	Pid       defs.Pid_t
	StartTick int64
	Refcnt    int32
	backing   *Pg_t
	nexti     uint32
}

/// FrameRecord_t is the value Dump()/DumpPid() copy out; it excludes the
/// backing storage and free-list link, which are never exposed outside the
/// Frame Tracker.
type FrameRecord_t struct {
	Index     int
	Allocated bool
	Pid       defs.Pid_t
	StartTick int64
	Refcnt    int32
}

/// Physmem_t is the Frame Tracker. All mutation happens under one mutex.
type Physmem_t struct {
	sync.Mutex
	info    [PFNNUM]Physpg_t
	freei   uint32
	freelen int
	ticks   int64
}

/// Physmem is the process-wide Frame Tracker singleton (spec.md §9: global
/// mutable state with explicit init, no teardown).
var Physmem = newPhysmem()

func newPhysmem() *Physmem_t {
	p := &Physmem_t{}
	p.Kinit()
	return p
}

/// Kinit (re)initializes the free list by scanning the whole physical
/// range, as the teacher's kinit1/kinit2 pair does at boot.
func (p *Physmem_t) Kinit() {
	p.Lock()
	defer p.Unlock()
	for i := range p.info {
		p.info[i] = Physpg_t{Pid: defs.NoPid}
		if i == len(p.info)-1 {
			p.info[i].nexti = noFrame
		} else {
			p.info[i].nexti = uint32(i + 1)
		}
	}
	p.freei = 0
	p.freelen = PFNNUM
	p.ticks = 0
}

/// Tick advances the coarse clock spec.md uses for Physpg_t.start_tick and
/// returns the new value. Biscuit drives this from a real timer interrupt;
/// the timer is an external collaborator here (spec.md §1), so callers that
/// want wall-clock-like progress (a syscall-entry hook, tests) advance it
/// explicitly.
func (p *Physmem_t) Tick() int64 {
	return atomic.AddInt64(&p.ticks, 1)
}

func (p *Physmem_t) curTick() int64 {
	return atomic.LoadInt64(&p.ticks)
}

func pa2idx(pa Pa_t) int {
	return int(pa >> PGSHIFT)
}

func idx2pa(idx int) Pa_t {
	return Pa_t(idx) << PGSHIFT
}

/// Kalloc pops a frame off the free list, marking it allocated with
/// refcnt=1. When storeOwner is true the frame also records the calling
/// process's pid; otherwise it is kernel-owned (pid = -1), matching
/// spec.md §4.1's "kalloc(store_owner: bool) -> Option<Frame>".
func (p *Physmem_t) Kalloc(pid defs.Pid_t, storeOwner bool) (Pa_t, bool) {
	p.Lock()
	defer p.Unlock()
	if p.freelen == 0 {
		return 0, false
	}
	idx := p.freei
	fp := &p.info[idx]
	p.freei = fp.nexti
	p.freelen--

	owner := defs.NoPid
	if storeOwner {
		owner = pid
	}
	backing := fp.backing
	if backing == nil {
		backing = new(Pg_t)
	} else {
		*backing = Pg_t{}
	}
	*fp = Physpg_t{
		Allocated: true,
		Pid:       owner,
		StartTick: p.curTick(),
		Refcnt:    1,
		backing:   backing,
	}
	return idx2pa(int(idx)), true
}

/// Refup increments a frame's reference count. The frame must already be
/// allocated.
func (p *Physmem_t) Refup(pa Pa_t) {
	p.Lock()
	defer p.Unlock()
	fp := p.frame(pa)
	if !fp.Allocated {
		panic("refup of free frame")
	}
	fp.Refcnt++
}

/// Refcnt returns a frame's current reference count.
func (p *Physmem_t) Refcnt(pa Pa_t) int {
	p.Lock()
	defer p.Unlock()
	return int(p.frame(pa).Refcnt)
}

/// Kfree decrements a frame's refcount; only once it reaches zero does the
/// frame return to the free list and its metadata reset. Panics if pa does
/// not name a currently-allocated frame (spec.md §4.1 failure contract).
func (p *Physmem_t) Kfree(pa Pa_t) {
	p.Lock()
	defer p.Unlock()
	idx := pa2idx(pa)
	fp := p.frame(pa)
	if !fp.Allocated {
		panic("kfree of unmanaged frame")
	}
	fp.Refcnt--
	if fp.Refcnt < 0 {
		panic("negative refcnt")
	}
	if fp.Refcnt == 0 {
		backing := fp.backing
		*fp = Physpg_t{Pid: defs.NoPid, backing: backing, nexti: p.freei}
		p.freei = uint32(idx)
		p.freelen++
	}
}

func (p *Physmem_t) frame(pa Pa_t) *Physpg_t {
	idx := pa2idx(pa)
	if idx < 0 || idx >= PFNNUM {
		panic("pa out of range")
	}
	return &p.info[idx]
}

/// Dmap returns the backing page for pa. It stands in for the teacher's
/// hardware direct map (see the package doc comment): a plain index lookup
/// instead of a real aliased VA.
func (p *Physmem_t) Dmap(pa Pa_t) *Pg_t {
	p.Lock()
	defer p.Unlock()
	fp := p.frame(pa)
	if fp.backing == nil {
		panic("dmap of frame with no backing store")
	}
	return fp.backing
}

/// Dump copies up to max frame records, free frames included, into buf in
/// ascending frame-index order; the copy is atomic with respect to
/// Kalloc/Kfree (spec.md §4.1). It returns the number of records copied.
func (p *Physmem_t) Dump(buf []FrameRecord_t, max int) int {
	p.Lock()
	defer p.Unlock()
	limit := util.Min(max, len(buf))
	n := 0
	for i := range p.info {
		if n >= limit {
			break
		}
		fp := &p.info[i]
		buf[n] = frameRecord(i, fp)
		n++
	}
	return n
}

/// DumpPid is like Dump but restricted to frames owned by pid, used by
/// "memdump -p pid" (spec.md §6 CLI surface).
func (p *Physmem_t) DumpPid(pid defs.Pid_t, buf []FrameRecord_t, max int) int {
	p.Lock()
	defer p.Unlock()
	limit := util.Min(max, len(buf))
	n := 0
	for i := range p.info {
		if n >= limit {
			break
		}
		fp := &p.info[i]
		if !fp.Allocated || fp.Pid != pid {
			continue
		}
		buf[n] = frameRecord(i, fp)
		n++
	}
	return n
}

func frameRecord(i int, fp *Physpg_t) FrameRecord_t {
	return FrameRecord_t{
		Index:     i,
		Allocated: fp.Allocated,
		Pid:       fp.Pid,
		StartTick: fp.StartTick,
		Refcnt:    fp.Refcnt,
	}
}

/// FreeCount reports the number of currently unallocated frames.
func (p *Physmem_t) FreeCount() int {
	p.Lock()
	defer p.Unlock()
	return p.freelen
}
