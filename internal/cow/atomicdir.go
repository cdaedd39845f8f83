package cow

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"github.com/wilgaboury/sbdb/internal/dberr"
	"github.com/wilgaboury/sbdb/internal/dblog"
	"github.com/wilgaboury/sbdb/internal/sidecar"
)

// ErrAtomicDirUnavailable is returned by the callers of BeginAtomicDir
// (sbdb's DirWriteGuard.CowAtomic and Transaction.DirCowAtomic) when
// AtomicDirSupported reports false for the current platform/config;
// BeginAtomicDir itself does not check. On Windows the symlink swap
// requires developer mode or elevated privileges.
var ErrAtomicDirUnavailable = errors.New("sbdb: atomic directory publication unavailable on this platform")

// AtomicDirMode governs whether atomic directory publication is attempted
// on Windows.
type AtomicDirMode string

const (
	// AtomicDirAuto is unavailable on Windows by default (the safe
	// choice, since the plain symlink call would otherwise fail at
	// commit time without elevated rights) and available everywhere
	// else.
	AtomicDirAuto AtomicDirMode = "auto"
	// AtomicDirForce always attempts the symlink swap, even on Windows.
	AtomicDirForce AtomicDirMode = "force"
	// AtomicDirDisable always rejects atomic directory publication.
	AtomicDirDisable AtomicDirMode = "disable"
)

// AtomicDirSupported reports whether BeginAtomicDir should be attempted
// given mode and the current platform.
func AtomicDirSupported(mode AtomicDirMode) bool {
	if runtime.GOOS != "windows" {
		return mode != AtomicDirDisable
	}
	return mode == AtomicDirForce
}

// AtomicDirStage is an atomic directory copy-on-write session. It
// publishes by atomically swapping a symbolic link, per the directory
// commit state machine's atomic variant: STAGED -> PUBLISHED -> CLEANED
// (with an extra STAGED -> BACKED_UP step folded in when converting a real
// directory into atomic form).
type AtomicDirStage struct {
	current string // the logical directory path, e.g. <root>/nested
	parent  string
	base    string
	rid     string
	stage   string // absolute staging directory path

	conversion  bool   // current existed as a real directory being converted
	priorTarget string // absolute path of the prior symlink target, if any
}

// BeginAtomicDir stages an atomic-directory commit for current (an
// absolute path). Three cases, per the data model:
//
//   - current is a symlink: its target is read and recursively copied
//     into a fresh staging directory; the prior target is recorded so
//     Commit can reap it.
//   - current is a real directory (conversion into atomic form): it is
//     recursively copied into the staging directory.
//   - current does not exist: the staging directory begins empty.
func BeginAtomicDir(current string) (*AtomicDirStage, error) {
	parent, base, err := sidecar.Split(current)
	if err != nil {
		return nil, err
	}
	rid := sidecar.NewRID()
	stage := sidecar.DirStagePath(parent, base, rid)

	s := &AtomicDirStage{current: current, parent: parent, base: base, rid: rid, stage: stage}

	info, lerr := os.Lstat(current)
	switch {
	case lerr != nil && os.IsNotExist(lerr):
		if err := os.MkdirAll(stage, 0o755); err != nil {
			return nil, dberr.Open("cow.BeginAtomicDir.mkdir", err).WithContext("stage", stage)
		}
	case lerr != nil:
		return nil, dberr.Open("cow.BeginAtomicDir.lstat", lerr).WithContext("current", current)
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(current)
		if err != nil {
			return nil, dberr.Open("cow.BeginAtomicDir.readlink", err).WithContext("current", current)
		}
		origAbs := target
		if !filepath.IsAbs(origAbs) {
			origAbs = filepath.Join(parent, target)
		}
		if err := CopyTree(origAbs, stage); err != nil {
			return nil, err
		}
		s.priorTarget = origAbs
	default:
		if err := CopyTree(current, stage); err != nil {
			return nil, err
		}
		s.conversion = true
	}

	return s, nil
}

// Path returns the on-disk staging path, for arbitrary caller I/O.
func (s *AtomicDirStage) Path() string { return s.stage }

// Commit publishes the stage as current via an atomic symlink swap:
//
//  1. a temporary symlink pointing at the staging directory is created
//     alongside current.
//  2. if current is a real directory being converted, it is renamed to a
//     rollback backup.
//  3. the temporary symlink is renamed over current - the atomic
//     publication step. Consumers observing current see either the old
//     state or the new symlink, never a broken path in between.
//  4. a prior symlink target (replacement case) or conversion backup is
//     recursively removed; failures here are logged, not surfaced, since
//     publication already succeeded.
func (s *AtomicDirStage) Commit() error {
	tmpLink := sidecar.TmpLinkPath(s.parent, s.base)
	stageBase := filepath.Base(s.stage)

	if err := os.Symlink(stageBase, tmpLink); err != nil {
		return dberr.Commit("cow.AtomicDirStage.Commit.symlink", err).WithContext("current", s.current)
	}

	var backup string
	if s.conversion {
		backup = sidecar.BackupPath(s.parent, s.base, s.rid)
		if err := os.Rename(s.current, backup); err != nil {
			return dberr.Commit("cow.AtomicDirStage.Commit.backup", err).WithContext("current", s.current)
		}
	}

	if err := os.Rename(tmpLink, s.current); err != nil {
		if s.conversion {
			rolledBack := true
			if rbErr := os.Rename(backup, s.current); rbErr != nil {
				rolledBack = false
				dblog.Warn("rolling back atomic directory commit for %s: %v", s.current, rbErr)
			}
			return dberr.Commit("cow.AtomicDirStage.Commit.publish", err).
				WithContext("current", s.current).
				WithRollback(rolledBack)
		}
		// No conversion backup to roll back to; the temp symlink is left
		// for the sweep to reap, per the state machine's failure column.
		return dberr.Commit("cow.AtomicDirStage.Commit.publish", err).WithContext("current", s.current)
	}

	if s.priorTarget != "" {
		if err := os.RemoveAll(s.priorTarget); err != nil {
			dblog.Warn("removing prior atomic-directory target %s: %v", s.priorTarget, err)
		}
	}
	if s.conversion {
		if err := os.RemoveAll(backup); err != nil {
			dblog.Warn("removing conversion backup %s: %v", backup, err)
		}
	}
	return nil
}

// Abandon leaves the staging directory in place for the garbage-collection
// sweep to reap.
func (s *AtomicDirStage) Abandon() {}
