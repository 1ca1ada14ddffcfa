// Package tlb implements the Software TLB: a direct-mapped cache of
// (pid, va_page) -> (pa_page, flags) with hit/miss counters (spec.md §3,
// §4.4).
//
// Grounded on the teacher's stats package for the counter idiom
// (src/stats/stats.go's Counter_t) and on the direct-mapped, no-chaining
// design implied by spec.md's "index = (pid XOR va_page) mod NUMTLB":
// unlike ipt's chained buckets, a TLB slot has no fallback on collision,
// it is simply overwritten.
package tlb

import (
	"sync"

	"swxlate/src/defs"
	"swxlate/src/mem"
	"swxlate/src/stats"
)

// NumSlots is the number of direct-mapped TLB slots (spec.md §3: NUMTLB).
const NumSlots = 128

/// slot_t is one direct-mapped cache line.
type slot_t struct {
	valid bool
	pid   defs.Pid_t
	va    uintptr
	pa    mem.Pa_t
	flags mem.Pa_t
}

/// Tlb_t is the Software TLB singleton.
type Tlb_t struct {
	sync.Mutex
	slots   [NumSlots]slot_t
	Hits    stats.Counter_t
	Misses  stats.Counter_t
}

/// Table is the process-wide software TLB instance.
var Table = &Tlb_t{}

func index(pid defs.Pid_t, va uintptr) int {
	vapage := va &^ uintptr(mem.PGOFFSET)
	return int((uintptr(pid) ^ vapage) % NumSlots)
}

/// Lookup returns (pa, flags, true) on a hit and bumps the hit counter;
/// on a miss it bumps the miss counter and returns (0, 0, false).
func (t *Tlb_t) Lookup(pid defs.Pid_t, va uintptr) (mem.Pa_t, mem.Pa_t, bool) {
	t.Lock()
	defer t.Unlock()
	s := &t.slots[index(pid, va)]
	if s.valid && s.pid == pid && s.va == va&^uintptr(mem.PGOFFSET) {
		t.Hits.Inc()
		return s.pa, s.flags, true
	}
	t.Misses.Inc()
	return 0, 0, false
}

/// Alloc installs an entry, overwriting any collision in the same slot.
func (t *Tlb_t) Alloc(pid defs.Pid_t, va uintptr, pa mem.Pa_t, flags mem.Pa_t) {
	t.Lock()
	defer t.Unlock()
	s := &t.slots[index(pid, va)]
	*s = slot_t{
		valid: true,
		pid:   pid,
		va:    va &^ uintptr(mem.PGOFFSET),
		pa:    pa,
		flags: flags,
	}
}

/// Invalidate removes the entry for (pid, va) if it is the one occupying
/// its slot.
func (t *Tlb_t) Invalidate(pid defs.Pid_t, va uintptr) {
	t.Lock()
	defer t.Unlock()
	s := &t.slots[index(pid, va)]
	if s.valid && s.pid == pid && s.va == va&^uintptr(mem.PGOFFSET) {
		*s = slot_t{}
	}
}

/// InvalidatePid clears every slot belonging to pid, used on process exit.
func (t *Tlb_t) InvalidatePid(pid defs.Pid_t) {
	t.Lock()
	defer t.Unlock()
	for i := range t.slots {
		if t.slots[i].valid && t.slots[i].pid == pid {
			t.slots[i] = slot_t{}
		}
	}
}

/// Flush clears the whole table.
func (t *Tlb_t) Flush() {
	t.Lock()
	defer t.Unlock()
	for i := range t.slots {
		t.slots[i] = slot_t{}
	}
}

/// Info returns the current hit/miss counters for the tlbinfo syscall.
func (t *Tlb_t) Info() (hits uint32, misses uint32) {
	return uint32(t.Hits.Get()), uint32(t.Misses.Get())
}
