// Command print_addr prints a file's direct block addresses and its
// referenced indirect block, the debug view spec.md §6's get_addrs and
// get_indirect_addrs syscalls back (spec.md §8 scenarios 1/2).
package main

import (
	"fmt"
	"os"

	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"golang.org/x/text/message"

	"swxlate/src/fs"
	"swxlate/src/kern"
)

var (
	app   = kingpin.New("print_addr", "Print a file's direct and indirect block addresses.")
	image = app.Flag("image", "disk image path").Default("xv6.img").String()
	path  = app.Arg("path", "file path under /").Required().String()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	sb, err := fs.OpenImage(*image)
	if err != nil {
		kern.Log.WithError(err).Fatal("print_addr: failed to open image")
	}

	addrs, kerr := kern.GetAddrs(sb, *path)
	if kerr != 0 {
		kern.Log.WithField("err", kerr).Fatal("print_addr: no such file")
	}

	p := message.NewPrinter(message.MatchLanguage("en"))
	for i, a := range addrs {
		if i < fs.NDIRECT {
			p.Printf("addr[%d] = %d\n", i, a)
		} else {
			p.Printf("addr[%d] (indirect) = %d\n", i, a)
		}
	}

	ind, kerr := kern.GetIndirectAddrs(sb, *path)
	if kerr == 0 {
		for i, a := range ind {
			if a != 0 {
				p.Printf("addr[%d]->[%d] = %d\n", fs.NDIRECT, i, a)
			}
		}
	}

	if st, serr := kern.Stat(sb, *path); serr == 0 {
		p.Printf("ino %d: mode=%d size=%d\n", st.Rino(), st.Mode(), st.Size())
	}
	fmt.Println()
}
