package fault

import (
	"testing"

	"github.com/stretchr/testify/require"

	"swxlate/src/defs"
	"swxlate/src/ipt"
	"swxlate/src/mem"
	"swxlate/src/tlb"
	"swxlate/src/vatrack"
	"swxlate/src/walker"
)

func freshProc(t *testing.T, pid defs.Pid_t) *Proc_t {
	t.Helper()
	pa, ok := mem.Physmem.Kalloc(pid, false)
	require.True(t, ok)
	pg := mem.Physmem.Dmap(pa)
	*pg = mem.Pg_t{}
	return &Proc_t{
		Pid:     pid,
		Pgdir:   mem.Pg2pmap(pg),
		Tracker: vatrack.New(),
	}
}

func TestHandleNoPTEIsFatal(t *testing.T) {
	proc := freshProc(t, 1)
	res, err := Handle(proc, 0x500000, 0)
	require.Equal(t, ResultFatal, res)
	require.Equal(t, -defs.EFAULT, err)
}

func TestHandleRescueThenRefillPromotesToPresent(t *testing.T) {
	proc := freshProc(t, 2)
	pte, ok := walker.PgdirWalk(proc.Pgdir, 0x1000, true)
	require.True(t, ok)
	pa, ok := mem.Physmem.Kalloc(proc.Pid, true)
	require.True(t, ok)
	*pte = pa // no PTE_T, no PTE_P: untracked user page

	res, err := Handle(proc, 0x1000, 0)
	require.Zero(t, err)
	require.Equal(t, ResultRescueRefill, res)
	require.NotZero(t, *pte&mem.PTE_P)
	require.Zero(t, *pte&mem.PTE_T, "present bit wins over the rescued T bit")
	require.Equal(t, 1, proc.Tracker.Len())
}

func TestHandleRefillInstallsTLBEntry(t *testing.T) {
	proc := freshProc(t, 3)
	pte, ok := walker.PgdirWalk(proc.Pgdir, 0x2000, true)
	require.True(t, ok)
	pa, ok := mem.Physmem.Kalloc(proc.Pid, true)
	require.True(t, ok)
	*pte = pa | mem.PTE_T | mem.PTE_U

	res, err := Handle(proc, 0x2000, 0)
	require.Zero(t, err)
	require.Equal(t, ResultRefill, res)

	gotPa, _, hit := tlb.Table.Lookup(proc.Pid, 0x2000)
	require.True(t, hit)
	require.Equal(t, pa&mem.PTE_ADDR, gotPa)
}

func TestHandleFatalOnKernelRangeUntrackedFault(t *testing.T) {
	proc := freshProc(t, 4)
	proc.KernBase = 0x100000
	pte, ok := walker.PgdirWalk(proc.Pgdir, 0x200000, true)
	require.True(t, ok)
	pa, ok := mem.Physmem.Kalloc(0, false)
	require.True(t, ok)
	*pte = pa

	res, err := Handle(proc, 0x200000, 0)
	require.Equal(t, ResultFatal, res)
	require.Equal(t, -defs.EFAULT, err)
}

func TestCOWFaultClaimsWhenSoleOwner(t *testing.T) {
	proc := freshProc(t, 5)
	pte, ok := walker.PgdirWalk(proc.Pgdir, 0x3000, true)
	require.True(t, ok)
	pa, ok := mem.Physmem.Kalloc(proc.Pid, true)
	require.True(t, ok)
	*pte = pa | mem.PTE_P | mem.PTE_C

	res, err := Handle(proc, 0x3000, mem.PTE_W)
	require.Zero(t, err)
	require.Equal(t, ResultCOWClaimed, res)
	require.Zero(t, *pte&mem.PTE_C)
	require.NotZero(t, *pte&mem.PTE_W)
	require.Equal(t, pa&mem.PTE_ADDR, *pte&mem.PTE_ADDR, "claiming keeps the same frame")
}

func TestCOWFaultCopiesAndRewiresIPTWhenShared(t *testing.T) {
	parent := freshProc(t, 6)
	child := freshProc(t, 7)

	shared, ok := mem.Physmem.Kalloc(parent.Pid, true)
	require.True(t, ok)
	mem.Physmem.Refup(shared)
	require.Equal(t, 2, mem.Physmem.Refcnt(shared))

	ppte, ok := walker.PgdirWalk(parent.Pgdir, 0x4000, true)
	require.True(t, ok)
	*ppte = shared | mem.PTE_P | mem.PTE_C
	cpte, ok := walker.PgdirWalk(child.Pgdir, 0x4000, true)
	require.True(t, ok)
	*cpte = shared | mem.PTE_P | mem.PTE_C

	ipt.Table.Insert(0x4000, shared, *ppte, parent.Pid)
	ipt.Table.Insert(0x4000, shared, *cpte, child.Pid)
	require.Len(t, ipt.Table.Head(shared, 0), 2)

	(*mem.Physmem.Dmap(shared))[0] = 0xdeadbeef

	res, err := Handle(child, 0x4000, mem.PTE_W)
	require.Zero(t, err)
	require.Equal(t, ResultCOWCopied, res)
	require.Zero(t, *cpte&mem.PTE_C)
	require.NotZero(t, *cpte&mem.PTE_W)

	newpa := *cpte & mem.PTE_ADDR
	require.NotEqual(t, shared&mem.PTE_ADDR, newpa)
	require.Equal(t, uint64(0xdeadbeef), (*mem.Physmem.Dmap(newpa))[0], "copied page must carry the old contents")

	require.Equal(t, 1, mem.Physmem.Refcnt(shared), "old frame's refcount drops by one")

	head := ipt.Table.Head(shared, 0)
	require.Len(t, head, 1)
	require.Equal(t, parent.Pid, head[0].Pid)

	newHead := ipt.Table.Head(newpa, 0)
	require.Len(t, newHead, 1)
	require.Equal(t, child.Pid, newHead[0].Pid)
}

func TestExitReclaimsTranslationResources(t *testing.T) {
	proc := freshProc(t, 8)
	pte, ok := walker.PgdirWalk(proc.Pgdir, 0x5000, true)
	require.True(t, ok)
	pa, ok := mem.Physmem.Kalloc(proc.Pid, true)
	require.True(t, ok)
	*pte = pa | mem.PTE_T | mem.PTE_U
	_, err := Handle(proc, 0x5000, 0)
	require.Zero(t, err)

	ipt.Table.Insert(0x5000, pa, *pte, proc.Pid)
	tlb.Table.Alloc(proc.Pid, 0x5000, pa, *pte)

	Exit(proc)

	require.Empty(t, ipt.Table.Head(pa, 0))
	_, _, hit := tlb.Table.Lookup(proc.Pid, 0x5000)
	require.False(t, hit)
	require.Equal(t, 0, proc.Tracker.Len())
}
