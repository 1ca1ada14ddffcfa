// Command snap_create takes a snapshot of the live filesystem tree
// (spec.md §6 snapshot_create, §8 scenario 1).
package main

import (
	"fmt"
	"os"

	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"swxlate/src/fs"
	"swxlate/src/kern"
)

var (
	app   = kingpin.New("snap_create", "Create a whole-filesystem snapshot.")
	image = app.Flag("image", "disk image path").Default("xv6.img").String()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	sb, err := fs.OpenImage(*image)
	if err != nil {
		kern.Log.WithError(err).Fatal("snap_create: failed to open image")
	}

	id := kern.SnapshotCreate(sb)
	if id < 0 {
		switch id {
		case kern.SnapErrOutOfInos:
			fmt.Fprintln(os.Stderr, "snapshot create failed: out of inodes")
		default:
			fmt.Fprintln(os.Stderr, "snapshot create failed")
		}
		os.Exit(1)
	}

	if err := fs.SaveImage(*image); err != nil {
		kern.Log.WithError(err).Fatal("snap_create: failed to save image")
	}
	fmt.Printf("snapshot created with id: %d\n", id)
}
