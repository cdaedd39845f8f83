// Package gc implements the garbage-collection sweep: a best-effort walk
// of the root tree that reaps orphaned sidecars left behind by crashed
// commits and abandoned copy-on-write sessions.
//
// The sweep resolves the spec's open question about its own locking
// discipline (a plain read lock on the walked directory cannot prevent a
// race with a live commit that is about to rename the very sidecar the
// sweep is inspecting) by acquiring a write (exclusive) lock on each
// sidecar's *target* - non-blocking - before reaping it. A target with a
// live session simply fails that probe and is left alone; the probe never
// blocks waiting for one. The shared lock the walk takes on each directory
// while listing it is a blocking acquire.
package gc

import (
	"os"
	"path/filepath"
	"time"

	"github.com/wilgaboury/sbdb/internal/dblog"
	"github.com/wilgaboury/sbdb/internal/pathlock"
	"github.com/wilgaboury/sbdb/internal/sidecar"
)

// Result summarizes a sweep run.
type Result struct {
	Visited int      // directories walked
	Removed []string // sidecar (or stale backing) paths removed
}

// Sweep walks root and reaps orphaned sidecars. graceSeconds, if positive,
// is the minimum age (by the sidecar's own mtime) a staged artifact (tmp,
// backup, dir-stage, tmplink) must reach before the sweep will remove it
// even once the liveness probe finds it quiescent - a cushion against
// reaping a stage that is between being created and taking its first
// lock. Lock/queue sidecars are never subject to this grace period since
// they are only ever removed once their target is confirmed gone
// entirely. Errors encountered along the way are logged via
// internal/dblog and never fatal to the sweep.
func Sweep(root string, graceSeconds int) *Result {
	res := &Result{}
	walk(root, time.Duration(graceSeconds)*time.Second, res)
	return res
}

func walk(dirAbs string, grace time.Duration, res *Result) {
	lock, err := pathlock.AcquireShared(dirAbs)
	if err != nil {
		dblog.Warn("gc: acquiring read lock on %s: %v", dirAbs, err)
		return
	}
	entries, err := os.ReadDir(dirAbs)
	lock.Release()
	if err != nil {
		if !os.IsNotExist(err) {
			dblog.Warn("gc: reading directory %s: %v", dirAbs, err)
		}
		return
	}
	res.Visited++

	var subdirs []string
	for _, entry := range entries {
		name := entry.Name()
		if parsed, ok := sidecar.ParseName(name); ok {
			reapSidecar(dirAbs, name, parsed, grace, res)
			continue
		}
		if entry.IsDir() {
			subdirs = append(subdirs, filepath.Join(dirAbs, name))
		}
	}

	for _, sub := range subdirs {
		walk(sub, grace, res)
	}
}

func reapSidecar(dirAbs, name string, parsed sidecar.Parsed, grace time.Duration, res *Result) {
	sidecarPath := filepath.Join(dirAbs, name)
	targetAbs := filepath.Join(dirAbs, parsed.Target)

	_, statErr := os.Lstat(targetAbs)
	targetExists := statErr == nil

	switch parsed.Kind {
	case sidecar.KindLock, sidecar.KindQueue:
		if !targetExists {
			removeFile(sidecarPath, res)
		}

	case sidecar.KindDirStage:
		isSymlink := false
		if targetExists {
			if info, err := os.Lstat(targetAbs); err == nil {
				isSymlink = info.Mode()&os.ModeSymlink != 0
			}
		}
		if !targetExists || !isSymlink {
			reapIfQuiescent(targetAbs, sidecarPath, grace, res, true)
		}

	case sidecar.KindTmp, sidecar.KindBackup:
		if targetExists {
			reapIfQuiescent(targetAbs, sidecarPath, grace, res, true)
		}

	case sidecar.KindTmpLink:
		if targetExists {
			reapIfQuiescent(targetAbs, sidecarPath, grace, res, false)
		}
	}
}

// reapIfQuiescent removes sidecarPath only if a non-blocking exclusive
// probe of targetAbs succeeds, i.e. no session currently holds that
// target's lock, and the sidecar is already at least grace old (skipped
// entirely when grace <= 0). asDir controls whether the sidecar itself is
// removed recursively (a staging directory or backup) or as a single file
// (a symlink or plain sidecar file).
func reapIfQuiescent(targetAbs, sidecarPath string, grace time.Duration, res *Result, asDir bool) {
	if grace > 0 {
		info, err := os.Lstat(sidecarPath)
		if err != nil {
			if !os.IsNotExist(err) {
				dblog.Warn("gc: statting %s: %v", sidecarPath, err)
			}
			return
		}
		if time.Since(info.ModTime()) < grace {
			return // too young to reap yet, regardless of liveness
		}
	}

	ok, lock, err := pathlock.TryAcquireExclusive(targetAbs)
	if err != nil {
		dblog.Warn("gc: probing %s: %v", targetAbs, err)
		return
	}
	if !ok {
		return // live session holds this target; leave the sidecar alone
	}
	defer lock.Release()

	if asDir {
		removeTree(sidecarPath, res)
	} else {
		removeFile(sidecarPath, res)
	}
}

func removeFile(path string, res *Result) {
	if err := os.Remove(path); err != nil {
		dblog.Warn("gc: removing %s: %v", path, err)
		return
	}
	res.Removed = append(res.Removed, path)
}

func removeTree(path string, res *Result) {
	if err := os.RemoveAll(path); err != nil {
		dblog.Warn("gc: removing %s: %v", path, err)
		return
	}
	res.Removed = append(res.Removed, path)
}
