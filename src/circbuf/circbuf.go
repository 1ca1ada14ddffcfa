// Package circbuf implements a circular byte buffer backed by one
// simulated physical page, used by src/kern as the console that
// hello_number writes to (spec.md §6). Once full, further writes are
// truncated: the buffer keeps the oldest unread bytes.
//
// The teacher's circbuf additionally supported Userio_i-mediated copies
// to/from user address space and a raw zero-copy mode for a TCP stack;
// neither user-space copying nor networking exist in this domain, so this
// version trims to plain []byte Write/Read, keeping the head/tail
// wraparound arithmetic unchanged.
package circbuf

import (
	"swxlate/src/defs"
	"swxlate/src/mem"
)

/// Circbuf_t is a fixed-capacity ring buffer backed by one physical page.
/// It is not safe for concurrent use; callers serialize access themselves.
type Circbuf_t struct {
	owner defs.Pid_t
	pg    mem.Pa_t
	buf   []uint8
	bufsz int
	head  int
	tail  int
}

/// Bufsz returns the configured buffer size.
func (cb *Circbuf_t) Bufsz() int {
	return cb.bufsz
}

/// Init allocates the backing page for a buffer of sz bytes (at most one
/// page). owner attributes the frame in frame-tracker dumps.
func (cb *Circbuf_t) Init(sz int, owner defs.Pid_t) defs.Err_t {
	if sz <= 0 || sz > mem.PGSIZE {
		panic("bad circbuf size")
	}
	pa, ok := mem.Physmem.Kalloc(owner, true)
	if !ok {
		return -defs.ENOMEM
	}
	cb.owner = owner
	cb.pg = pa
	cb.buf = mem.Pg2bytes(mem.Physmem.Dmap(pa))[:sz]
	cb.bufsz = sz
	cb.head, cb.tail = 0, 0
	return 0
}

/// Release drops the backing page. The buffer must not be used afterward.
func (cb *Circbuf_t) Release() {
	if cb.buf == nil {
		return
	}
	mem.Physmem.Kfree(cb.pg)
	cb.pg = 0
	cb.buf = nil
	cb.head, cb.tail = 0, 0
}

/// Full returns true when the buffer cannot accept more data.
func (cb *Circbuf_t) Full() bool {
	return cb.head-cb.tail == cb.bufsz
}

/// Empty reports whether the buffer contains any data.
func (cb *Circbuf_t) Empty() bool {
	return cb.head == cb.tail
}

/// Left returns the remaining capacity in bytes.
func (cb *Circbuf_t) Left() int {
	return cb.bufsz - (cb.head - cb.tail)
}

/// Used returns the current number of bytes in the buffer.
func (cb *Circbuf_t) Used() int {
	return cb.head - cb.tail
}

/// Write appends src to the buffer, dropping trailing bytes that don't
/// fit. It returns the number of bytes actually stored.
func (cb *Circbuf_t) Write(src []byte) int {
	n := 0
	for n < len(src) && !cb.Full() {
		cb.buf[cb.head%cb.bufsz] = src[n]
		cb.head++
		n++
	}
	return n
}

/// Read drains up to len(dst) bytes into dst, oldest first. It returns the
/// number of bytes copied.
func (cb *Circbuf_t) Read(dst []byte) int {
	n := 0
	for n < len(dst) && !cb.Empty() {
		dst[n] = cb.buf[cb.tail%cb.bufsz]
		cb.tail++
		n++
	}
	return n
}

/// Snapshot returns the buffer's current contents, oldest first, without
/// consuming them.
func (cb *Circbuf_t) Snapshot() []byte {
	used := cb.Used()
	out := make([]byte, used)
	for i := 0; i < used; i++ {
		out[i] = cb.buf[(cb.tail+i)%cb.bufsz]
	}
	return out
}
