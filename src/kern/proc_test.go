package kern

import (
	"testing"

	"github.com/stretchr/testify/require"

	"swxlate/src/defs"
)

func TestNewProcMarksAlive(t *testing.T) {
	p := NewProc(defs.Pid_t(100), defs.NoPid, "init")
	require.True(t, p.Tnote.Alive)
	require.Equal(t, StateRunnable, p.State)
}

func TestGetProcinfoReportsLivenessAndRusage(t *testing.T) {
	p := NewProc(defs.Pid_t(101), defs.NoPid, "probe")

	var out Procinfo_t
	errc := GetProcinfo(p, 0, &out)
	require.Equal(t, defs.Err_t(0), errc)
	require.True(t, out.Alive)
	require.Equal(t, p.Pid, out.Pid)
	require.NotEmpty(t, out.Rusage, "get_procinfo must surface an accounting snapshot")
}

func TestVtopChargesSystemTime(t *testing.T) {
	p := NewProc(defs.Pid_t(102), defs.NoPid, "walker")
	before := p.Accnt.Sysns

	_, _, errc := Vtop(p, 0x1000)
	require.Equal(t, -defs.EFAULT, errc, "unmapped va must fault")
	require.GreaterOrEqual(t, p.Accnt.Sysns, before, "vtop must never decrease charged system time")
}

func TestExitProcMergesAccountingIntoParent(t *testing.T) {
	parent := NewProc(defs.Pid_t(200), defs.NoPid, "parent")
	child := NewProc(defs.Pid_t(201), parent.Pid, "child")
	child.Accnt.Systadd(5000)

	parentBefore := parent.Accnt.Sysns
	ExitProc(child.Pid)

	require.Equal(t, StateDead, child.State)
	require.False(t, child.Tnote.Alive)
	require.Equal(t, parentBefore+5000, parent.Accnt.Sysns)

	_, ok := Lookup(child.Pid)
	require.False(t, ok, "exited process must leave the registry")
}

func TestExitProcIsIdempotent(t *testing.T) {
	p := NewProc(defs.Pid_t(202), defs.NoPid, "onceonly")
	ExitProc(p.Pid)
	require.NotPanics(t, func() { ExitProc(p.Pid) })
}
