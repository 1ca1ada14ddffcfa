package walker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"swxlate/src/mem"
)

func freshPgdir(t *testing.T) *mem.Pmap_t {
	t.Helper()
	pa, ok := mem.Physmem.Kalloc(0, false)
	require.True(t, ok)
	pg := mem.Physmem.Dmap(pa)
	*pg = mem.Pg_t{}
	return mem.Pg2pmap(pg)
}

func TestPgdirWalkNoCreateReturnsFalseOnAbsentPDE(t *testing.T) {
	pgdir := freshPgdir(t)
	_, ok := PgdirWalk(pgdir, 0x400000, false)
	require.False(t, ok)
}

func TestPgdirWalkCreateInstallsPDEAndReturnsStableSlot(t *testing.T) {
	pgdir := freshPgdir(t)
	pte, ok := PgdirWalk(pgdir, 0x1000, true)
	require.True(t, ok)
	*pte = mem.Pa_t(5*mem.PGSIZE) | mem.PTE_P | mem.PTE_W

	pte2, ok := PgdirWalk(pgdir, 0x1000, false)
	require.True(t, ok)
	require.Equal(t, pte, pte2, "a later non-creating walk must find the same PTE slot")
}

func TestSwVtopCombinesFrameAndOffset(t *testing.T) {
	pgdir := freshPgdir(t)
	pte, ok := PgdirWalk(pgdir, 0x2000, true)
	require.True(t, ok)
	*pte = mem.Pa_t(3*mem.PGSIZE) | mem.PTE_P | mem.PTE_W

	pa, flags, mapped := SwVtop(pgdir, 0x2000+0x123)
	require.True(t, mapped)
	require.Equal(t, mem.Pa_t(3*mem.PGSIZE+0x123), pa)
	require.NotZero(t, flags&mem.PTE_W)
}

func TestSwVtopUnmappedReturnsNotMapped(t *testing.T) {
	pgdir := freshPgdir(t)
	_, flags, mapped := SwVtop(pgdir, 0x900000)
	require.False(t, mapped)
	require.Equal(t, NotMapped, flags)
}

func TestSwVtopRecognizesSoftwareManagedEntries(t *testing.T) {
	pgdir := freshPgdir(t)
	pte, ok := PgdirWalk(pgdir, 0x4000, true)
	require.True(t, ok)
	// PTE_T set, PTE_P clear: still "mapped" in the sw-walk sense.
	*pte = mem.Pa_t(1*mem.PGSIZE) | mem.PTE_T

	_, _, mapped := SwVtop(pgdir, 0x4000)
	require.True(t, mapped)
}
