package fs

import (
	"os"

	"github.com/pkg/errors"
)

// SaveImage persists the simulated disk's current contents to path as a
// flat binary image (one BSIZE-byte record per block, in order), the
// durable form cmd/mkfs and the snapshot CLIs load from across runs.
// Wrapped with github.com/pkg/errors for file-I/O context, the way
// other_examples' systemd_exporter wraps dbus/procfs errors (SPEC_FULL.md
// §1) — this is the one place this package's simulated block device
// touches a real file, everywhere else Disk_t stays purely in memory.
func SaveImage(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "fs: create image %s", path)
	}
	defer f.Close()

	d := disk()
	for i := 0; i < d.Nblock(); i++ {
		b := d.Bread(i)
		if _, err := f.Write(b.Data[:]); err != nil {
			return errors.Wrapf(err, "fs: write block %d of %s", i, path)
		}
	}
	return nil
}

// LoadImage replaces the in-memory simulated disk's contents with the
// blocks stored in the flat image at path, previously written by
// SaveImage. The disk must already be sized via InitDisk/InitFS.
func LoadImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "fs: open image %s", path)
	}
	defer f.Close()

	d := disk()
	buf := make([]byte, BSIZE)
	for i := 0; i < d.Nblock(); i++ {
		n, err := readFull(f, buf)
		if n == 0 && err != nil {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "fs: read block %d of %s", i, path)
		}
		b := d.Bread(i)
		copy(b.Data[:], buf)
	}
	return nil
}

// OpenImage opens a disk image previously written by SaveImage, sizing
// and initializing the in-memory simulated disk to match the image's
// byte length before loading its blocks, and returns the formatted
// superblock found at its fixed location. CLIs that operate across
// separate invocations (snap_create, print_addr, append, ...) use this
// to resume the same on-disk state a prior invocation persisted.
func OpenImage(path string) (*Superblock_t, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "fs: stat image %s", path)
	}
	nblk := int(fi.Size() / BSIZE)
	if nblk <= 0 {
		return nil, errors.Errorf("fs: image %s too small", path)
	}
	InitDisk(nblk)
	if err := LoadImage(path); err != nil {
		return nil, err
	}
	sb := ReadSuper()
	SmapInit(sb.Ndatablocks())
	LoadSmap(sb)
	return sb, nil
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
