package tlb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"swxlate/src/defs"
	"swxlate/src/mem"
)

func TestLookupImmediatelyAfterAllocHits(t *testing.T) {
	var tb Tlb_t
	pid, va, pa, flags := defs.Pid_t(1), uintptr(0x3000), mem.Pa_t(7*mem.PGSIZE), mem.PTE_W

	tb.Alloc(pid, va, pa, flags)
	gotPa, gotFlags, ok := tb.Lookup(pid, va)
	require.True(t, ok)
	require.Equal(t, pa, gotPa)
	require.Equal(t, flags, gotFlags)
	require.EqualValues(t, 1, tb.Hits.Get())
}

func TestLookupMissIncrementsMisses(t *testing.T) {
	var tb Tlb_t
	_, _, ok := tb.Lookup(defs.Pid_t(1), 0x1000)
	require.False(t, ok)
	require.EqualValues(t, 1, tb.Misses.Get())
}

func TestInvalidateOfDifferentPidVaDoesNotRemoveEntry(t *testing.T) {
	var tb Tlb_t
	pid, va, pa, flags := defs.Pid_t(1), uintptr(0x4000), mem.Pa_t(2*mem.PGSIZE), mem.PTE_W
	tb.Alloc(pid, va, pa, flags)

	// Pick a (pid, va) pair that cannot collide with the same slot.
	otherPid, otherVa := defs.Pid_t(9999), uintptr(0x9999000)
	if index(otherPid, otherVa) == index(pid, va) {
		otherPid++
	}
	tb.Invalidate(otherPid, otherVa)

	gotPa, gotFlags, ok := tb.Lookup(pid, va)
	require.True(t, ok)
	require.Equal(t, pa, gotPa)
	require.Equal(t, flags, gotFlags)
}

func TestInvalidateExactMatchRemovesEntry(t *testing.T) {
	var tb Tlb_t
	pid, va := defs.Pid_t(1), uintptr(0x4000)
	tb.Alloc(pid, va, mem.Pa_t(2*mem.PGSIZE), mem.PTE_W)
	tb.Invalidate(pid, va)

	_, _, ok := tb.Lookup(pid, va)
	require.False(t, ok)
}

func TestAllocOverwritesCollidingSlot(t *testing.T) {
	var tb Tlb_t
	pid, va := defs.Pid_t(1), uintptr(0x1000)
	slot := index(pid, va)

	// Find a distinct (pid2, va2) that collides into the same slot.
	var pid2 defs.Pid_t
	var va2 uintptr
	found := false
	for p := defs.Pid_t(2); p < 200; p++ {
		for v := uintptr(0); v < uintptr(NumSlots)*uintptr(mem.PGSIZE); v += uintptr(mem.PGSIZE) {
			if index(p, v) == slot && !(p == pid && v == va) {
				pid2, va2 = p, v
				found = true
				break
			}
		}
		if found {
			break
		}
	}
	require.True(t, found, "test setup: expected a colliding (pid,va) pair to exist")

	tb.Alloc(pid, va, mem.Pa_t(1*mem.PGSIZE), mem.PTE_W)
	tb.Alloc(pid2, va2, mem.Pa_t(2*mem.PGSIZE), mem.PTE_U)

	_, _, ok := tb.Lookup(pid, va)
	require.False(t, ok, "the earlier entry must have been evicted by the collision")

	pa, flags, ok := tb.Lookup(pid2, va2)
	require.True(t, ok)
	require.Equal(t, mem.Pa_t(2*mem.PGSIZE), pa)
	require.Equal(t, mem.PTE_U, flags)
}

func TestInvalidatePidOnlyClearsThatPid(t *testing.T) {
	var tb Tlb_t
	tb.Alloc(defs.Pid_t(1), 0x1000, mem.Pa_t(mem.PGSIZE), mem.PTE_W)
	tb.Alloc(defs.Pid_t(2), 0x2000, mem.Pa_t(2*mem.PGSIZE), mem.PTE_W)

	tb.InvalidatePid(defs.Pid_t(1))

	_, _, ok := tb.Lookup(defs.Pid_t(1), 0x1000)
	require.False(t, ok)
	_, _, ok = tb.Lookup(defs.Pid_t(2), 0x2000)
	require.True(t, ok)
}

func TestFlushClearsEverySlot(t *testing.T) {
	var tb Tlb_t
	tb.Alloc(defs.Pid_t(1), 0x1000, mem.Pa_t(mem.PGSIZE), mem.PTE_W)
	tb.Flush()

	_, _, ok := tb.Lookup(defs.Pid_t(1), 0x1000)
	require.False(t, ok)
}

func TestInfoReportsCounters(t *testing.T) {
	var tb Tlb_t
	tb.Alloc(defs.Pid_t(1), 0x1000, mem.Pa_t(mem.PGSIZE), mem.PTE_W)
	tb.Lookup(defs.Pid_t(1), 0x1000)
	tb.Lookup(defs.Pid_t(2), 0x2000)

	hits, misses := tb.Info()
	require.EqualValues(t, 1, hits)
	require.EqualValues(t, 1, misses)
}
