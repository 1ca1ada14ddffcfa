// Command append writes a string to the end of a file, creating it if
// absent. Appending to a file whose trailing block is shared with a
// snapshot drives the per-block or whole-indirect COW path of
// spec.md §4.9 (see spec.md §8 scenario 1).
package main

import (
	"fmt"
	"os"

	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"swxlate/src/fs"
	"swxlate/src/kern"
)

var (
	app    = kingpin.New("append", "Append a string to a file.")
	image  = app.Flag("image", "disk image path").Default("xv6.img").String()
	path   = app.Arg("path", "file path under /").Required().String()
	text   = app.Arg("string", "bytes to append").Required().String()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	sb, err := fs.OpenImage(*image)
	if err != nil {
		kern.Log.WithError(err).Fatal("append: failed to open image")
	}

	inum, ok := fs.Namei(sb, *path)
	if !ok {
		inum = fs.CreateFile(sb, fs.RootIno, *path)
	}

	off := fs.InodeSize(sb, inum)
	n, werr := fs.Writei(sb, inum, []byte(*text), off)
	if werr != 0 {
		kern.Log.WithField("err", werr).Fatal("append: write failed")
	}

	if err := fs.SaveImage(*image); err != nil {
		kern.Log.WithError(err).Fatal("append: failed to save image")
	}
	fmt.Printf("appended %d bytes to %s at offset %d\n", n, *path, off)
}
