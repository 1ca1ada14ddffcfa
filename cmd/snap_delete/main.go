// Command snap_delete removes a previously created snapshot (spec.md §6
// snapshot_delete, §8 scenario 6).
package main

import (
	"fmt"
	"os"

	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"swxlate/src/fs"
	"swxlate/src/kern"
)

var (
	app   = kingpin.New("snap_delete", "Delete a previously created snapshot.")
	image = app.Flag("image", "disk image path").Default("xv6.img").String()
	id    = app.Arg("id", "snapshot id").Required().Uint32()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	sb, err := fs.OpenImage(*image)
	if err != nil {
		kern.Log.WithError(err).Fatal("snap_delete: failed to open image")
	}

	rc := kern.SnapshotDelete(sb, *id)
	if rc != kern.SnapOK {
		fmt.Fprintln(os.Stderr, "snapshot delete failed: invalid id")
		os.Exit(1)
	}

	if err := fs.SaveImage(*image); err != nil {
		kern.Log.WithError(err).Fatal("snap_delete: failed to save image")
	}
	fmt.Printf("snapshot %d deleted\n", *id)
}
