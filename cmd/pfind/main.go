// Command pfind lists every (pid, va) mapping the Inverted Page Table
// holds for a physical frame (spec.md §6's phys2virt, CLI name pfind per
// spec.md §6's CLI surface). Queries against a pa nothing maps correctly
// report zero entries rather than an error (spec.md §8's untested-edge
// convention); the demo below builds one COW-shared frame first so there
// is always something real to find.
package main

import (
	"fmt"
	"os"

	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"swxlate/src/kern"
	"swxlate/src/mem"
)

var (
	app = kingpin.New("pfind", "List every mapping of a physical frame.")
	pa  = app.Arg("pa", "physical address").Required().Uint64()
	max = app.Flag("max", "maximum number of entries to report").Short('m').Default("16").Int()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	parent := kern.NewProc(1, 0, "pfind-parent")
	child := kern.NewProc(2, 1, "pfind-child")

	demoPg := uintptr(0x1000)
	demoPa, err := parent.Map(demoPg)
	if err != 0 {
		kern.Log.WithField("err", err).Fatal("pfind: failed to build demo mapping")
	}
	if err := kern.ForkChild(parent, child, demoPg); err != 0 {
		kern.Log.WithField("err", err).Fatal("pfind: failed to fork demo mapping")
	}
	fmt.Printf("demo: parent/child share frame pa=%#x at va=%#x (try: pfind %d)\n", demoPa, demoPg, demoPa)

	paPage := uint32(uintptr(*pa) &^ uintptr(mem.PGOFFSET))
	entries, kerr := kern.Phys2Virt(paPage, *max)
	if kerr != 0 {
		kern.Log.WithField("err", kerr).Fatal("pfind: lookup failed")
	}
	if len(entries) == 0 {
		fmt.Printf("pa %#x: no mappings\n", *pa)
		return
	}
	for _, e := range entries {
		fmt.Printf("pa %#x: pid=%d va=%#x flags=%#x\n", *pa, e.Pid, e.Va, e.Flags)
	}
}
