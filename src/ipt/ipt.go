// Package ipt implements the Inverted Page Table: the reverse map from
// physical frame to every (pid, va, flags) mapping of that frame
// (spec.md §3, §4.3).
//
// The bucket-chain-of-elem_t shape is grounded on the teacher's generic
// hashtable package (src/hashtable/hashtable.go), but the synchronization
// discipline differs deliberately: spec.md §4.3 calls for "a single
// coarse table lock" plus a separate slab-pool lock, not the teacher's
// per-bucket striped locking, so this package is a single Ipt_t guarded
// by one sync.Mutex and a second for the slab.
package ipt

import (
	"sync"
	"unsafe"

	"swxlate/src/defs"
	"swxlate/src/mem"
)

// Buckets is the number of hash-bucket heads (spec.md §3: IPT_BUCKETS).
const Buckets = 60000

// entriesPerSlabPage is how many Entry_t cells one slab-allocated frame is
// carved into.
const entriesPerSlabPage = mem.PGSIZE / 64

/// Entry_t is one IPT record: a single (pid, va) mapping of some frame.
/// Next chains entries that share a pfn; cnext threads the free pool.
type Entry_t struct {
	Pfn    uint32
	Pid    defs.Pid_t
	Va     uintptr
	Flags  mem.Pa_t
	Refcnt int32
	next   *Entry_t
	cnext  *Entry_t
}

/// Ipt_t is the Inverted Page Table singleton.
type Ipt_t struct {
	mu     sync.Mutex
	heads  [Buckets]*Entry_t
	slabmu sync.Mutex
	free   *Entry_t
}

/// Table is the process-wide IPT instance (spec.md §9: explicit init, no
/// teardown).
var Table = &Ipt_t{}

func bucket(pfn uint32) uint32 {
	return pfn % Buckets
}

/// growSlab allocates one physical frame and carves it into entriesPerSlabPage
/// cells threaded through cnext, per spec.md §4.3. Returns false if no frame
/// is available.
func (t *Ipt_t) growSlab() bool {
	pa, ok := mem.Physmem.Kalloc(defs.NoPid, false)
	if !ok {
		return false
	}
	pg := mem.Physmem.Dmap(pa)
	cells := (*[entriesPerSlabPage]Entry_t)(unsafe.Pointer(pg))
	for i := range cells {
		cells[i].cnext = t.free
		t.free = &cells[i]
	}
	return true
}

/// Insert locates the bucket head for pa/PGSIZE; if an entry with matching
/// (va, pid) already exists its flags are updated, otherwise a fresh entry
/// is allocated and appended to the chain's tail. PTE_P is always recorded
/// in the stored flags. Returns false if the slab cannot grow and no entry
/// exists to update (spec.md §4.3, §4.4's hint to invalidate the specific
/// SW-TLB slot afterward is the caller's responsibility since it spans
/// packages).
func (t *Ipt_t) Insert(va uintptr, pa mem.Pa_t, flags mem.Pa_t, pid defs.Pid_t) bool {
	pfn := uint32(pa >> mem.PGSHIFT)
	flags |= mem.PTE_P

	t.mu.Lock()
	defer t.mu.Unlock()

	b := bucket(pfn)
	var tail *Entry_t
	for e := t.heads[b]; e != nil; e = e.next {
		if e.Pfn == pfn && e.Va == va && e.Pid == pid {
			e.Flags = flags
			return true
		}
		tail = e
	}

	e := t.alloc()
	if e == nil {
		return false
	}
	e.Pfn = pfn
	e.Pid = pid
	e.Va = va
	e.Flags = flags
	e.Refcnt = 1
	e.next = nil
	if tail == nil {
		t.heads[b] = e
	} else {
		tail.next = e
	}
	return true
}

/// Remove unlinks the matching (va, pa, pid) entry and returns it to the
/// free pool. Returns false if no matching entry exists.
func (t *Ipt_t) Remove(va uintptr, pa mem.Pa_t, pid defs.Pid_t) bool {
	pfn := uint32(pa >> mem.PGSHIFT)

	t.mu.Lock()
	defer t.mu.Unlock()

	b := bucket(pfn)
	var prev *Entry_t
	for e := t.heads[b]; e != nil; e = e.next {
		if e.Pfn == pfn && e.Va == va && e.Pid == pid {
			if prev == nil {
				t.heads[b] = e.next
			} else {
				prev.next = e.next
			}
			t.free2(e)
			return true
		}
		prev = e
	}
	return false
}

/// Head returns a snapshot slice of every entry chained off the bucket for
/// pa (used by phys2virt). The slice is a copy; it does not alias internal
/// chain state.
func (t *Ipt_t) Head(pa mem.Pa_t, max int) []Entry_t {
	pfn := uint32(pa >> mem.PGSHIFT)

	t.mu.Lock()
	defer t.mu.Unlock()

	b := bucket(pfn)
	var out []Entry_t
	for e := t.heads[b]; e != nil; e = e.next {
		if e.Pfn != pfn {
			continue
		}
		if max > 0 && len(out) >= max {
			break
		}
		out = append(out, *e)
	}
	return out
}

/// RemoveAllForPid drops every IPT entry owned by pid, used on process
/// exit (spec.md §4.5, §5).
func (t *Ipt_t) RemoveAllForPid(pid defs.Pid_t) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for b := range t.heads {
		var prev *Entry_t
		e := t.heads[b]
		for e != nil {
			next := e.next
			if e.Pid == pid {
				if prev == nil {
					t.heads[b] = next
				} else {
					prev.next = next
				}
				t.free2(e)
			} else {
				prev = e
			}
			e = next
		}
	}
}

// alloc pops one cell off the slab free list, growing the slab if empty.
// Caller must hold t.mu; the slab lock is acquired internally, matching
// spec.md §4.3's "the slab pool has its own lock".
func (t *Ipt_t) alloc() *Entry_t {
	t.slabmu.Lock()
	defer t.slabmu.Unlock()
	if t.free == nil {
		if !t.growSlab() {
			return nil
		}
	}
	e := t.free
	t.free = e.cnext
	e.cnext = nil
	return e
}

func (t *Ipt_t) free2(e *Entry_t) {
	t.slabmu.Lock()
	defer t.slabmu.Unlock()
	*e = Entry_t{cnext: t.free}
	t.free = e
}
