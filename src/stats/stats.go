// Package stats provides lightweight, reflectable counters used to expose
// kernel instrumentation (software-TLB hits/misses) to
// callers such as tlbinfo and the Prometheus exporter in cmd/kernelstats.
package stats

import "reflect"
import "sync/atomic"
import "strconv"
import "strings"
import "time"
import "unsafe"

// Stats is forced on: unlike the teacher's debug-gated build flag, the
// software-TLB hit/miss counters this package backs are required kernel
// semantics (spec.md §3, §4.4), not optional instrumentation.
const Stats = true
const Timing = false

/// Nowns returns a monotonic-ish cycle surrogate. The teacher's Rdtsc()
/// called into a forked Go runtime's RDTSC intrinsic, unavailable in stock
/// Go; wall-clock nanoseconds serve the same "count elapsed work" role for
/// the Cycles_t counters below.
func Nowns() uint64 {
	if !Timing {
		return 0
	}
	return uint64(time.Now().UnixNano())
}

/// Counter_t is a statistical counter.
type Counter_t int64

/// Cycles_t holds a cycle count.
type Cycles_t int64

/// Inc increments the counter.
func (c *Counter_t) Inc() {
	if Stats {
		n := (*int64)(unsafe.Pointer(c))
		atomic.AddInt64(n, 1)
	}
}

/// Get reads the counter's current value.
func (c *Counter_t) Get() int64 {
	n := (*int64)(unsafe.Pointer(c))
	return atomic.LoadInt64(n)
}

/// Add adds elapsed cycles to the counter.
func (c *Cycles_t) Add(m uint64) {
	if Timing {
		n := (*int64)(unsafe.Pointer(c))
		atomic.AddInt64(n, int64(Nowns()-m))
	}
}

/// Stats2String converts a struct of counters to a printable string.
func Stats2String(st interface{}) string {
	if !Stats {
		return ""
	}
	v := reflect.ValueOf(st)
	s := ""
	for i := 0; i < v.NumField(); i++ {
		t := v.Field(i).Type().String()
		if strings.HasSuffix(t, "Counter_t") {
			n := v.Field(i).Interface().(Counter_t)
			s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		}
		if strings.HasSuffix(t, "Cycles_t") {
			n := v.Field(i).Interface().(Cycles_t)
			s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		}

	}
	return s + "\n"
}
