// Command mk_test_file creates a file spanning every direct block plus
// one indirect-referenced block (spec.md §8 scenario 1: "13 non-zero
// direct addresses (bn 0..11) and one indirect pointer; addr[12]->[0] is
// non-zero"), used to set up the end-to-end COW/snapshot demonstrations.
package main

import (
	"fmt"
	"os"

	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"swxlate/src/fs"
	"swxlate/src/kern"
)

var (
	app   = kingpin.New("mk_test_file", "Create a test file spanning direct and indirect blocks.")
	image = app.Flag("image", "disk image path").Default("xv6.img").String()
	path  = app.Arg("path", "file path under /").Required().String()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	sb, err := fs.OpenImage(*image)
	if err != nil {
		kern.Log.WithError(err).Fatal("mk_test_file: failed to open image")
	}

	data := make([]byte, (fs.NDIRECT+1)*fs.BSIZE)
	for blk := 0; blk <= fs.NDIRECT; blk++ {
		header := []byte(fmt.Sprintf("%d\n", blk))
		off := blk * fs.BSIZE
		copy(data[off:off+fs.BSIZE], header)
		for i := off + len(header); i < off+fs.BSIZE; i++ {
			data[i] = 'x'
		}
	}

	inum := fs.CreateFile(sb, fs.RootIno, *path)
	if _, werr := fs.Writei(sb, inum, data, 0); werr != 0 {
		kern.Log.WithField("err", werr).Fatal("mk_test_file: write failed")
	}

	if err := fs.SaveImage(*image); err != nil {
		kern.Log.WithError(err).Fatal("mk_test_file: failed to save image")
	}
	fmt.Printf("created %s (%d bytes, %d direct blocks + 1 indirect)\n", *path, len(data), fs.NDIRECT)
}
