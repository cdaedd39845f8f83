package cow

import (
	"os"

	"github.com/wilgaboury/sbdb/internal/dberr"
	"github.com/wilgaboury/sbdb/internal/sidecar"
)

// FileStage is a file copy-on-write session: begin, mutate the staging
// path freely, then commit (atomic rename into place) or abandon (leave
// the artifact for the garbage-collection sweep).
type FileStage struct {
	orig  string
	stage string
}

// BeginFile creates a sibling staging file for orig (an absolute path)
// using reflink-or-copy semantics and returns a handle exposing the
// staging path. If orig does not yet exist, the stage begins empty.
func BeginFile(orig string) (*FileStage, error) {
	dir, base, err := sidecar.Split(orig)
	if err != nil {
		return nil, err
	}
	stage := sidecar.TmpPath(dir, base)

	if _, err := os.Stat(orig); err != nil {
		if !os.IsNotExist(err) {
			return nil, dberr.Open("cow.BeginFile.stat", err).WithContext("orig", orig)
		}
		f, err := os.OpenFile(stage, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, dberr.Open("cow.BeginFile.create", err).WithContext("stage", stage)
		}
		f.Close()
		return &FileStage{orig: orig, stage: stage}, nil
	}

	if err := CopyFile(orig, stage); err != nil {
		return nil, err
	}
	return &FileStage{orig: orig, stage: stage}, nil
}

// Path returns the on-disk staging path, for arbitrary caller I/O.
func (s *FileStage) Path() string { return s.stage }

// Commit renames the staging file over orig. This is atomic on POSIX for
// within-filesystem renames: readers observe either the pre-state or the
// post-state, never a partial write.
func (s *FileStage) Commit() error {
	if err := os.Rename(s.stage, s.orig); err != nil {
		return dberr.Commit("cow.FileStage.Commit", err).WithContext("orig", s.orig).WithContext("stage", s.stage)
	}
	return nil
}

// Abandon leaves the staging file in place for the garbage-collection
// sweep to reap. It is a deliberate no-op: abandonment is a normal,
// expected outcome, not a failure to report.
func (s *FileStage) Abandon() {}
