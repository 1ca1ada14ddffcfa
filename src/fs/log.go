package fs

import "sync"

// Log_t is the write-ahead log every durable filesystem operation wraps
// its work in (spec.md §4.9 "Finally... All of the above executes inside
// a single log transaction", §4.10 "All snapshot operations wrap the
// durable portion of their work in a log transaction").
//
// The real teacher log batches dirty blocks into an on-disk log region
// and replays it on crash recovery; crash recovery is part of the
// "write-ahead log... on-disk layout" spec.md §1 places out of scope.
// This log keeps only what callers actually observe: a single-writer
// transaction boundary (Begin/End) and a record of how many blocks were
// touched, which the indirect-migration rationale in spec.md §4.9/§9
// depends on ("bounds the number of log records per write").
type Log_t struct {
	mu      sync.Mutex
	active  bool
	touched map[int]bool
}

var theLog = &Log_t{}

/// LogBegin starts a transaction, blocking until any other transaction
/// completes (spec.md §5: "sleep... on log_begin (waiting for a free log
/// slot)").
func LogBegin() {
	theLog.mu.Lock()
	theLog.active = true
	theLog.touched = make(map[int]bool)
}

/// LogWrite records that block b was modified durably as part of the
/// current transaction.
func LogWrite(b *Block_t) {
	if !theLog.active {
		panic("log_write outside transaction")
	}
	disk().Bwrite(b)
	theLog.touched[b.Num] = true
}

/// LogEnd commits the current transaction and returns the number of
/// distinct blocks it touched, for instrumentation/testing.
func LogEnd() int {
	n := len(theLog.touched)
	theLog.active = false
	theLog.touched = nil
	theLog.mu.Unlock()
	return n
}
