// Command mkfs formats a fresh disk image for the simulated filesystem,
// re-grounded from the teacher's mkfs.go (which called a Ufs_t API never
// retrieved for this pack, see DESIGN.md) against this repo's own
// src/fs, keeping the teacher's "<image> <nlogblks|nblk> ..." CLI shape
// and classic xv6 layout constants.
package main

import (
	"os"

	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"swxlate/src/fs"
	"swxlate/src/kern"
)

var (
	app     = kingpin.New("mkfs", "Format a fresh disk image for the snapshot filesystem.")
	image   = app.Arg("image", "path to the disk image file to create").Required().String()
	nblk    = app.Arg("nblk", "total number of BSIZE blocks on the disk").Required().Int()
	ninodes = app.Arg("ninodes", "number of inode slots to reserve").Required().Int()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	fs.InitDisk(*nblk)
	sb := fs.InitFS(*nblk, *ninodes)
	if err := fs.SaveImage(*image); err != nil {
		kern.Log.WithError(err).Fatal("mkfs: failed to save image")
	}
	kern.Log.WithFields(map[string]interface{}{
		"image":   *image,
		"nblk":    *nblk,
		"ninodes": sb.Ninodes(),
	}).Info("mkfs: formatted")
}
