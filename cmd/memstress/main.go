// Command memstress is a small concurrent load generator over the
// address-translation core (spec.md §6 CLI surface "memstress -n N -t T
// [-w]"): it runs N simulated processes concurrently, each touching T
// lazily-mapped pages through the fault handler's refill path, and with
// -w additionally forks every process into a child and writes through
// every page to drive the COW path (spec.md §4.6). It reports the
// aggregate software-TLB and frame-tracker counters afterward, the same
// invariants spec.md §8's fork-chain and refill scenarios test for.
//
// Grounded on the teacher's worker-pool CLIs (stress-style load
// generators elsewhere in the retrieved pack use a bounded goroutine
// fan-out over errgroup); this one is small enough that a plain
// sync.WaitGroup over N goroutines is the idiomatic fit.
package main

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"golang.org/x/text/message"

	"swxlate/src/defs"
	"swxlate/src/fault"
	"swxlate/src/kern"
	"swxlate/src/mem"
)

var (
	app    = kingpin.New("memstress", "Load-generate the address-translation core.")
	nproc  = app.Flag("n", "number of simulated processes").Short('n').Default("8").Int()
	npages = app.Flag("t", "pages touched per process").Short('t').Default("32").Int()
	write  = app.Flag("w", "fork each process and write through its pages (COW)").Short('w').Bool()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	start := time.Now()
	var refills, rescues, cowClaimed, cowCopied int64

	var wg sync.WaitGroup
	for i := 0; i < *nproc; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pid := defs.Pid_t(i + 1)
			p := kern.NewProc(pid, 0, fmt.Sprintf("memstress-%d", i))

			for j := 0; j < *npages; j++ {
				pg := uintptr((j + 1) * mem.PGSIZE)
				if _, err := p.MapLazy(pg); err != 0 {
					continue
				}
				res, err := p.Touch(pg)
				if err != 0 {
					continue
				}
				switch res {
				case fault.ResultRefill:
					atomic.AddInt64(&refills, 1)
				case fault.ResultRescueRefill:
					atomic.AddInt64(&rescues, 1)
				}
			}

			if *write {
				child := kern.NewProc(defs.Pid_t(*nproc+i+1), pid, fmt.Sprintf("memstress-child-%d", i))
				tally := func(res fault.Result_t) {
					switch res {
					case fault.ResultCOWClaimed:
						atomic.AddInt64(&cowClaimed, 1)
					case fault.ResultCOWCopied:
						atomic.AddInt64(&cowCopied, 1)
					}
				}
				for j := 0; j < *npages; j++ {
					pg := uintptr((j + 1) * mem.PGSIZE)
					if err := kern.ForkChild(p, child, pg); err != 0 {
						continue
					}
					if res, err := child.WriteByte(pg, byte(j)); err == 0 {
						tally(res)
					}
					// The parent still holds its own COW-pending copy;
					// writing through it too exercises both the
					// refcnt==1 fast path and the real-copy path
					// (spec.md §4.6 case 2).
					if res, err := p.WriteByte(pg, byte(j+1)); err == 0 {
						tally(res)
					}
				}
			}
		}(i)
	}
	wg.Wait()

	hits, misses := kern.TlbInfo()
	free := mem.Physmem.FreeCount()

	pr := message.NewPrinter(message.MatchLanguage("en"))
	pr.Printf("memstress: %d processes x %d pages in %s\n", *nproc, *npages, time.Since(start))
	pr.Printf("  refills=%d rescue_refills=%d cow_claimed=%d cow_copied=%d\n", refills, rescues, cowClaimed, cowCopied)
	pr.Printf("  tlb hits=%d misses=%d free_frames=%d\n", hits, misses, free)
}
