package mem

import (
	"testing"

	"github.com/stretchr/testify/require"

	"swxlate/src/defs"
)

func freshPhysmem() *Physmem_t {
	p := &Physmem_t{}
	p.Kinit()
	return p
}

func TestKallocSetsOwnerAndRefcnt(t *testing.T) {
	p := freshPhysmem()
	before := p.FreeCount()

	pa, ok := p.Kalloc(defs.Pid_t(7), true)
	require.True(t, ok)
	require.Equal(t, 1, p.Refcnt(pa))
	require.Equal(t, before-1, p.FreeCount())
}

func TestKallocWithoutStoreOwnerIsKernelOwned(t *testing.T) {
	p := freshPhysmem()
	pa, ok := p.Kalloc(defs.Pid_t(7), false)
	require.True(t, ok)

	var buf [1]FrameRecord_t
	n := p.Dump(buf[:], 1)
	require.Equal(t, 1, n)
	require.Equal(t, defs.NoPid, buf[0].Pid)
	_ = pa
}

func TestKfreeReturnsFrameOnlyAtZeroRefcnt(t *testing.T) {
	p := freshPhysmem()
	pa, ok := p.Kalloc(defs.Pid_t(1), true)
	require.True(t, ok)
	p.Refup(pa)
	require.Equal(t, 2, p.Refcnt(pa))

	free := p.FreeCount()
	p.Kfree(pa)
	require.Equal(t, free, p.FreeCount(), "frame must stay allocated while refcnt > 0")
	require.Equal(t, 1, p.Refcnt(pa))

	p.Kfree(pa)
	require.Equal(t, free+1, p.FreeCount())
}

func TestKfreeOfUnmanagedFramePanics(t *testing.T) {
	p := freshPhysmem()
	pa, ok := p.Kalloc(defs.Pid_t(1), true)
	require.True(t, ok)
	p.Kfree(pa)

	require.Panics(t, func() { p.Kfree(pa) })
}

func TestKallocExhaustion(t *testing.T) {
	p := freshPhysmem()
	n := p.FreeCount()
	for i := 0; i < n; i++ {
		_, ok := p.Kalloc(defs.Pid_t(1), false)
		require.True(t, ok)
	}
	_, ok := p.Kalloc(defs.Pid_t(1), false)
	require.False(t, ok, "kalloc must report absence once the free list is empty")
}

func TestDumpIsFrameIndexAscendingAndBounded(t *testing.T) {
	p := freshPhysmem()
	pas := make([]Pa_t, 5)
	for i := range pas {
		pa, ok := p.Kalloc(defs.Pid_t(3), true)
		require.True(t, ok)
		pas[i] = pa
	}

	buf := make([]FrameRecord_t, 3)
	n := p.Dump(buf, 10)
	require.Equal(t, 3, n, "dump must respect len(buf) even when max is larger")
	for i := 1; i < n; i++ {
		require.Less(t, buf[i-1].Index, buf[i].Index)
	}
}

func TestDumpPidFiltersByOwner(t *testing.T) {
	p := freshPhysmem()
	_, ok := p.Kalloc(defs.Pid_t(4), true)
	require.True(t, ok)
	_, ok = p.Kalloc(defs.Pid_t(5), true)
	require.True(t, ok)

	buf := make([]FrameRecord_t, 10)
	n := p.DumpPid(defs.Pid_t(5), buf, 10)
	require.Equal(t, 1, n)
	require.Equal(t, defs.Pid_t(5), buf[0].Pid)
}
