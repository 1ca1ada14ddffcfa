package vatrack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrackRecordsNewVA(t *testing.T) {
	tr := New()
	tr.Track(0x1000, nil)
	require.Equal(t, 1, tr.Len())
}

func TestTrackDoesNotReTrackDuplicateVA(t *testing.T) {
	tr := New()
	tr.Track(0x1000, nil)
	tr.Track(0x1000, nil)
	require.Equal(t, 1, tr.Len())
}

func TestTrackDemotesAllAndResetsWhenFull(t *testing.T) {
	tr := New()
	for i := 0; i < MaxTrackers; i++ {
		tr.Track(uintptr(i+1)<<12, nil)
	}
	require.Equal(t, MaxTrackers, tr.Len())

	var demoted []uintptr
	tr.Track(uintptr(MaxTrackers+1)<<12, func(va uintptr) {
		demoted = append(demoted, va)
	})

	require.Len(t, demoted, MaxTrackers, "a full tracker must demote every previously tracked VA")
	require.Equal(t, 1, tr.Len(), "after the reset only the triggering VA is tracked")
}

func TestFlushDemotesAndResets(t *testing.T) {
	tr := New()
	tr.Track(0x1000, nil)
	tr.Track(0x2000, nil)

	var demoted []uintptr
	tr.Flush(func(va uintptr) { demoted = append(demoted, va) })

	require.ElementsMatch(t, []uintptr{0x1000, 0x2000}, demoted)
	require.Equal(t, 0, tr.Len())
}
