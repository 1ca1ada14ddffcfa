package circbuf

import (
	"testing"

	"github.com/stretchr/testify/require"

	"swxlate/src/defs"
)

func TestWriteThenReadRoundTrips(t *testing.T) {
	var cb Circbuf_t
	require.Zero(t, cb.Init(16, defs.Pid_t(1)))
	defer cb.Release()

	n := cb.Write([]byte("hello"))
	require.Equal(t, 5, n)
	require.Equal(t, 5, cb.Used())

	out := make([]byte, 5)
	got := cb.Read(out)
	require.Equal(t, 5, got)
	require.Equal(t, "hello", string(out))
	require.True(t, cb.Empty())
}

func TestWriteDropsBytesPastCapacity(t *testing.T) {
	var cb Circbuf_t
	require.Zero(t, cb.Init(4, defs.Pid_t(1)))
	defer cb.Release()

	n := cb.Write([]byte("abcdef"))
	require.Equal(t, 4, n)
	require.True(t, cb.Full())
}

func TestReadAfterPartialConsumptionWrapsAround(t *testing.T) {
	var cb Circbuf_t
	require.Zero(t, cb.Init(4, defs.Pid_t(1)))
	defer cb.Release()

	cb.Write([]byte("ab"))
	out := make([]byte, 1)
	cb.Read(out)
	cb.Write([]byte("cde"))

	got := cb.Snapshot()
	require.Equal(t, "bcde", string(got))
}

func TestLeftReflectsRemainingCapacity(t *testing.T) {
	var cb Circbuf_t
	require.Zero(t, cb.Init(4, defs.Pid_t(1)))
	defer cb.Release()

	require.Equal(t, 4, cb.Left())
	cb.Write([]byte("ab"))
	require.Equal(t, 2, cb.Left())
}

func TestInitRejectsOversizedBuffer(t *testing.T) {
	var cb Circbuf_t
	require.Panics(t, func() { cb.Init(1<<20, defs.Pid_t(1)) })
}
