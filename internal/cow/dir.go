package cow

import (
	"os"

	"github.com/wilgaboury/sbdb/internal/dberr"
	"github.com/wilgaboury/sbdb/internal/dblog"
	"github.com/wilgaboury/sbdb/internal/sidecar"
)

// DirStage is a non-atomic directory copy-on-write session: its commit
// goes through the two-rename sequence (orig -> backup, stage -> orig)
// documented in the directory commit state machine, with rollback if the
// second rename fails.
type DirStage struct {
	orig string
	dir  string
	base string
	stage string
}

// BeginDir recursively copies orig (an absolute path) to a sibling staging
// directory using reflink-or-copy per file, preserving symlinks. If orig
// does not yet exist, the stage begins as an empty directory.
func BeginDir(orig string) (*DirStage, error) {
	dir, base, err := sidecar.Split(orig)
	if err != nil {
		return nil, err
	}
	stage := sidecar.TmpPath(dir, base)

	if err := CopyTree(orig, stage); err != nil {
		return nil, err
	}
	return &DirStage{orig: orig, dir: dir, base: base, stage: stage}, nil
}

// Path returns the on-disk staging path, for arbitrary caller I/O.
func (s *DirStage) Path() string { return s.stage }

// Commit publishes the stage over orig via the two-rename protocol:
//
//  1. orig -> backup
//  2. stage -> orig (if this fails, backup -> orig rolls back, and the
//     error is surfaced along with rollback status)
//  3. backup is recursively removed; failures here are logged, not
//     surfaced, since the commit has already succeeded.
//
// Between steps 1 and 2, orig does not exist; a reader reaching the path
// during that window observes it missing. This is the one window in which
// the directory commit is not atomic - callers requiring atomic
// publication must use an AtomicDirStage instead.
func (s *DirStage) Commit() error {
	backup := sidecar.BackupPath(s.dir, s.base, sidecar.NewRID())

	_, statErr := os.Lstat(s.orig)
	origExists := statErr == nil

	if origExists {
		if err := os.Rename(s.orig, backup); err != nil {
			return dberr.Commit("cow.DirStage.Commit.backup", err).WithContext("orig", s.orig)
		}
	}

	if err := os.Rename(s.stage, s.orig); err != nil {
		rolledBack := true
		if origExists {
			if rbErr := os.Rename(backup, s.orig); rbErr != nil {
				rolledBack = false
				dblog.Warn("rolling back directory commit for %s: %v", s.orig, rbErr)
			}
		}
		return dberr.Commit("cow.DirStage.Commit.publish", err).
			WithContext("orig", s.orig).
			WithRollback(rolledBack)
	}

	if origExists {
		if err := os.RemoveAll(backup); err != nil {
			dblog.Warn("removing commit backup %s: %v", backup, err)
		}
	}
	return nil
}

// Abandon leaves the staging directory in place for the garbage-collection
// sweep to reap.
func (s *DirStage) Abandon() {}
