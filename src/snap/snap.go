// Package snap implements the Snapshot Manager: create, rollback, and
// delete of whole-filesystem snapshots stored under /snapshot
// (spec.md §4.10).
package snap

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"swxlate/src/fs"
	"swxlate/src/limits"
	"swxlate/src/ustr"
)

// log reports snapshot lifecycle events (creation, rollback, deletion),
// grounded on the ambient-stack decision to standardize on logrus
// (SPEC_FULL.md §1).
var log = logrus.New()

// mirrorConcurrency bounds how many directory-tree children
// snapshot_create mirrors at once (SPEC_FULL.md §12): siblings copy
// concurrently via errgroup+semaphore, each still serialized internally
// by the single-writer log (src/fs/log.go) per spec.md's per-inode
// transaction boundaries.
const mirrorConcurrency = 8

// ErrOutOfInodes and ErrGeneric are the two failure modes snapshot_create
// and snapshot_rollback distinguish (spec.md §6); snapshot_delete only
// ever returns ErrInvalidID.
var ErrOutOfInodes = errors.New("snapshot: out of inodes")
var ErrGeneric = errors.New("snapshot: operation failed")
var ErrInvalidID = errors.New("snapshot: invalid id")

var mgrMu sync.Mutex

// registry maps a live snapshot id to the inode number of its directory,
// so Rollback/Delete can validate an id without a linear directory scan.
var registry = map[uint32]int{}

// Count returns the number of currently live snapshots, for the
// kernelstats Prometheus exporter.
func Count() int {
	mgrMu.Lock()
	defer mgrMu.Unlock()
	return len(registry)
}

// lookupID resolves id to its snapshot directory inode: from the
// in-process registry, or else from /snapshot/<hex> on disk.
func lookupID(sb *fs.Superblock_t, id uint32) (int, bool) {
	if dirInum, ok := registry[id]; ok {
		return dirInum, true
	}
	snapRoot, ok := fs.Dirlookup(sb, fs.RootIno, snapshotDirName)
	if !ok {
		return 0, false
	}
	return fs.Dirlookup(sb, snapRoot, HexName(id))
}

/// HexName renders id as the lowercase hex directory name used under
/// /snapshot ("/snapshot/<id-in-hex>"), without zero padding.
func HexName(id uint32) string {
	return ustr.MkUstrHex(id, 0).String()
}

// admit applies spec.md §4.10 step 1's admission arithmetic: available
// free inodes ("avail"), the current in-memory live-snapshot count
// ("micount"), and the inodes this operation itself requires ("req").
func admit(sb *fs.Superblock_t, req int) error {
	used := fs.IcountUsed(sb)
	avail := sb.Ninodes() - 1 - used
	micount := len(registry)
	if max(avail, micount)+req+1 > sb.Ninodes() {
		return ErrOutOfInodes
	}
	if !limits.Syslimit.Inodes.Taken(uint(req)) {
		return ErrOutOfInodes
	}
	return nil
}

/// Create mirrors the live tree into a freshly assigned snapshot
/// directory (spec.md §4.10 "snapshot_create") and returns its id.
func Create(sb *fs.Superblock_t) (uint32, error) {
	mgrMu.Lock()
	defer mgrMu.Unlock()

	req := fs.Icount(sb, fs.RootIno, snapshotDirName)
	if err := admit(sb, req); err != nil {
		log.WithError(err).Warn("snapshot create: admission failed")
		return 0, err
	}

	snapRoot := fs.EnsureSnapshotDir(sb)
	id := fs.NextID()
	fs.PersistSmap(sb)

	name := HexName(id)
	dirInum := fs.MkDir(sb, snapRoot, name)

	sem := semaphore.NewWeighted(mirrorConcurrency)
	if err := mirror(context.Background(), sem, sb, fs.RootIno, dirInum); err != nil {
		log.WithError(err).WithField("id", id).Error("snapshot create: mirror failed")
		limits.Syslimit.Inodes.Given(uint(req))
		return 0, ErrGeneric
	}

	registry[id] = dirInum
	log.WithField("id", id).Info("snapshot create: done")
	return id, nil
}

const snapshotDirName = "snapshot"

// mirror recursively copies srcDir's entries into dstDir, skipping
// "/snapshot" at the top level and any device node (spec.md §4.10 step
// 4). Sibling entries are dispatched concurrently, bounded by sem
// (SPEC_FULL.md §12); each still serializes internally against the
// single-writer log (src/fs/log.go).
func mirror(ctx context.Context, sem *semaphore.Weighted, sb *fs.Superblock_t, srcDir int, dstDir int) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, ent := range fs.ListDir(sb, srcDir) {
		ent := ent
		if srcDir == fs.RootIno && ent.Name == snapshotDirName {
			continue
		}
		if fs.IsDevice(sb, ent.Inum) {
			continue
		}
		itype := fs.InodeType(sb, ent.Inum)
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		g.Go(func() error {
			defer sem.Release(1)
			switch itype {
			case fs.T_DIR:
				childDst := fs.MkDir(sb, dstDir, ent.Name)
				return mirror(ctx, sem, sb, ent.Inum, childDst)
			case fs.T_FILE:
				fs.Icopy(sb, ent.Inum, dstDir, ent.Name)
			}
			return nil
		})
	}
	return g.Wait()
}

/// Rollback replaces files/directories under / with the contents of
/// snapshot id, leaving inode numbers unpreserved (spec.md §4.10
/// "snapshot_rollback").
func Rollback(sb *fs.Superblock_t, id uint32) error {
	mgrMu.Lock()
	defer mgrMu.Unlock()

	dirInum, ok := lookupID(sb, id)
	if !ok {
		return ErrInvalidID
	}

	req := fs.Icount(sb, dirInum, "") - fs.Icount(sb, fs.RootIno, snapshotDirName)
	if req < 0 {
		req = 0
	}
	if err := admit(sb, req); err != nil {
		log.WithError(err).WithField("id", id).Warn("snapshot rollback: admission failed")
		return err
	}

	if !restore(sb, dirInum, fs.RootIno) {
		limits.Syslimit.Inodes.Given(uint(req))
		log.WithField("id", id).Error("snapshot rollback: restore failed")
		return ErrGeneric
	}
	log.WithField("id", id).Info("snapshot rollback: done")
	return nil
}

func restore(sb *fs.Superblock_t, snapDir int, liveDir int) bool {
	for _, ent := range fs.ListDir(sb, snapDir) {
		if fs.IsDevice(sb, ent.Inum) {
			continue
		}
		switch fs.InodeType(sb, ent.Inum) {
		case fs.T_DIR:
			childLive, ok := fs.Dirlookup(sb, liveDir, ent.Name)
			if !ok || fs.InodeType(sb, childLive) != fs.T_DIR {
				childLive = fs.MkDir(sb, liveDir, ent.Name)
			}
			if !restore(sb, ent.Inum, childLive) {
				return false
			}
		case fs.T_FILE:
			if existing, ok := fs.Dirlookup(sb, liveDir, ent.Name); ok {
				fs.LogBegin()
				fs.Dirunlink(sb, liveDir, ent.Name)
				fs.Ifree(sb, existing)
				fs.LogEnd()
			}
			fs.Irestore(sb, ent.Inum, liveDir, ent.Name)
		}
	}
	return true
}

/// Delete recursively unlinks every entry of snapshot id, then the
/// snapshot directory itself (spec.md §4.10 "snapshot_delete"). Per the
/// source's documented behavior (spec.md §9), smap bits unique to this
/// snapshot are not reclaimed; only the directory tree and inodes are
/// freed.
func Delete(sb *fs.Superblock_t, id uint32) error {
	mgrMu.Lock()
	defer mgrMu.Unlock()

	dirInum, ok := lookupID(sb, id)
	if !ok {
		return ErrInvalidID
	}

	freed := 1 + fs.Icount(sb, dirInum, "")
	fs.UnlinkRecursive(sb, dirInum)
	snapRoot := fs.EnsureSnapshotDir(sb)
	fs.LogBegin()
	fs.Ifree(sb, dirInum)
	fs.Dirunlink(sb, snapRoot, HexName(id))
	fs.LogEnd()
	limits.Syslimit.Inodes.Given(uint(freed))

	delete(registry, id)
	log.WithField("id", id).Info("snapshot delete: done")
	return nil
}
