package ipt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"swxlate/src/defs"
	"swxlate/src/mem"
)

func TestInsertThenHeadFindsEntry(t *testing.T) {
	var t1 Ipt_t
	pa := mem.Pa_t(5 * mem.PGSIZE)

	ok := t1.Insert(0x1000, pa, mem.PTE_W, defs.Pid_t(1))
	require.True(t, ok)

	head := t1.Head(pa, 0)
	require.Len(t, head, 1)
	require.Equal(t, uintptr(0x1000), head[0].Va)
	require.Equal(t, defs.Pid_t(1), head[0].Pid)
	require.NotZero(t, head[0].Flags&mem.PTE_P, "insert must always record PTE_P")
}

func TestInsertUpdatesExistingEntryInPlace(t *testing.T) {
	var t1 Ipt_t
	pa := mem.Pa_t(5 * mem.PGSIZE)

	require.True(t, t1.Insert(0x1000, pa, mem.PTE_W, defs.Pid_t(1)))
	require.True(t, t1.Insert(0x1000, pa, 0, defs.Pid_t(1)))

	head := t1.Head(pa, 0)
	require.Len(t, head, 1, "matching (va,pid) must update in place, not append")
}

func TestHeadChainsMultipleMappingsOfSamePfn(t *testing.T) {
	var t1 Ipt_t
	pa := mem.Pa_t(9 * mem.PGSIZE)

	require.True(t, t1.Insert(0x2000, pa, mem.PTE_W, defs.Pid_t(1)))
	require.True(t, t1.Insert(0x3000, pa, mem.PTE_W, defs.Pid_t(2)))

	head := t1.Head(pa, 0)
	require.Len(t, head, 2)
}

func TestRemoveUnlinksAndReturnsToFreePool(t *testing.T) {
	var t1 Ipt_t
	pa := mem.Pa_t(2 * mem.PGSIZE)

	require.True(t, t1.Insert(0x4000, pa, mem.PTE_W, defs.Pid_t(3)))
	ok := t1.Remove(0x4000, pa, defs.Pid_t(3))
	require.True(t, ok)
	require.Empty(t, t1.Head(pa, 0))

	ok = t1.Remove(0x4000, pa, defs.Pid_t(3))
	require.False(t, ok, "removing a nonexistent entry reports false")
}

func TestRemoveAllForPidOnlyTouchesThatPid(t *testing.T) {
	var t1 Ipt_t
	pa := mem.Pa_t(2 * mem.PGSIZE)

	require.True(t, t1.Insert(0x5000, pa, mem.PTE_W, defs.Pid_t(1)))
	require.True(t, t1.Insert(0x6000, pa, mem.PTE_W, defs.Pid_t(2)))

	t1.RemoveAllForPid(defs.Pid_t(1))

	head := t1.Head(pa, 0)
	require.Len(t, head, 1)
	require.Equal(t, defs.Pid_t(2), head[0].Pid)
}

func TestHeadRespectsMax(t *testing.T) {
	var t1 Ipt_t
	pa := mem.Pa_t(2 * mem.PGSIZE)

	for i := 0; i < 5; i++ {
		require.True(t, t1.Insert(uintptr(0x1000*(i+1)), pa, mem.PTE_W, defs.Pid_t(i)))
	}
	head := t1.Head(pa, 2)
	require.Len(t, head, 2)
}

func TestSlabGrowsWhenFreePoolEmpty(t *testing.T) {
	var t1 Ipt_t
	// Exhaust and regrow across a slab-page boundary; the caller's
	// inserted data must survive the grow.
	n := entriesPerSlabPage + 3
	for i := 0; i < n; i++ {
		pa := mem.Pa_t(i * mem.PGSIZE)
		ok := t1.Insert(uintptr(i), pa, mem.PTE_W, defs.Pid_t(1))
		require.True(t, ok)
	}
	for i := 0; i < n; i++ {
		pa := mem.Pa_t(i * mem.PGSIZE)
		head := t1.Head(pa, 0)
		require.Len(t, head, 1)
		require.Equal(t, uintptr(i), head[0].Va)
	}
}
