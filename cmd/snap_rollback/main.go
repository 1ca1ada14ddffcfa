// Command snap_rollback restores the live tree to a prior snapshot
// (spec.md §6 snapshot_rollback, §8 scenario 2).
package main

import (
	"fmt"
	"os"

	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"swxlate/src/fs"
	"swxlate/src/kern"
)

var (
	app   = kingpin.New("snap_rollback", "Roll the live filesystem tree back to a snapshot.")
	image = app.Flag("image", "disk image path").Default("xv6.img").String()
	id    = app.Arg("id", "snapshot id").Required().Uint32()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	sb, err := fs.OpenImage(*image)
	if err != nil {
		kern.Log.WithError(err).Fatal("snap_rollback: failed to open image")
	}

	rc := kern.SnapshotRollback(sb, *id)
	if rc != kern.SnapOK {
		switch rc {
		case kern.SnapErrOutOfInos:
			fmt.Fprintln(os.Stderr, "snapshot rollback failed: out of inodes")
		default:
			fmt.Fprintln(os.Stderr, "snapshot rollback failed: invalid id or error")
		}
		os.Exit(1)
	}

	if err := fs.SaveImage(*image); err != nil {
		kern.Log.WithError(err).Fatal("snap_rollback: failed to save image")
	}
	fmt.Printf("rolled back to snapshot %d\n", *id)
}
