// Command vtop resolves a virtual address with the software page walker
// and reports the software-TLB's view of it, demonstrating the
// miss-then-hit progression of spec.md §8 scenario 5 within a single
// process invocation (spec.md §6's vtop syscall has no persistent
// daemon behind it here, so the demo sets up its own lazily-mapped page
// before querying it twice).
package main

import (
	"fmt"
	"os"

	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"golang.org/x/text/message"

	"swxlate/src/kern"
	"swxlate/src/mem"
)

var (
	app = kingpin.New("vtop", "Resolve a virtual address via the software page walker and TLB.")
	va  = app.Arg("va", "virtual address").Required().Uint64()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	p := kern.NewProc(1, 0, "vtop")
	pg := uintptr(*va) &^ uintptr(mem.PGOFFSET)
	if _, err := p.MapLazy(pg); err != 0 {
		kern.Log.WithField("err", err).Fatal("vtop: failed to reserve page")
	}

	pr := message.NewPrinter(message.MatchLanguage("en"))

	pa1, flags1, err := kern.Vtop(p, uintptr(*va))
	if err != 0 {
		kern.Log.WithField("err", err).Fatal("vtop: translation failed")
	}
	hits1, misses1 := kern.TlbInfo()
	pr.Printf("vtop(%#x) = pa %#x flags %#x  [tlb hits=%d misses=%d]\n", *va, pa1, flags1, hits1, misses1)

	pa2, flags2, err := kern.Vtop(p, uintptr(*va))
	if err != 0 {
		kern.Log.WithField("err", err).Fatal("vtop: translation failed")
	}
	hits2, misses2 := kern.TlbInfo()
	fmt.Printf("vtop(%#x) = pa %#x flags %#x  [tlb hits=%d misses=%d]\n", *va, pa2, flags2, hits2, misses2)
}
