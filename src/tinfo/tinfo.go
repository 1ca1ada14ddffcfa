// Package tinfo tracks per-thread state. The teacher's original located
// "the currently running thread" via a forked Go runtime's per-g storage
// slot (runtime.Gptr/Setgptr); on stock Go there is no such slot, so every
// caller here is expected to carry its own *Tnote_t explicitly rather than
// fetch it from ambient goroutine state.
package tinfo

import "sync"

import "swxlate/src/defs"

/// Tnote_t stores per-thread state used by the fault handler and syscall
/// layer to decide whether a faulting or blocked thread should unwind.
type Tnote_t struct {
	State    interface{}
	Alive    bool
	Killed   bool
	Isdoomed bool
	// protects Killed, Killnaps.Cond and Kerr, and is a leaf lock
	sync.Mutex
	Killnaps struct {
		Killch chan bool
		Cond   *sync.Cond
		Kerr   defs.Err_t
	}
}

/// Doomed reports whether the thread is marked as doomed.
func (t *Tnote_t) Doomed() bool {
	return t.Isdoomed
}

/// Threadinfo_t tracks all thread notes belonging to one process.
type Threadinfo_t struct {
	Notes map[defs.Tid_t]*Tnote_t
	sync.Mutex
}

/// Init initializes the thread info map.
func (t *Threadinfo_t) Init() {
	t.Notes = make(map[defs.Tid_t]*Tnote_t)
}
