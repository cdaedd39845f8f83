package sbdb

import (
	"os"
	"path/filepath"

	"github.com/wilgaboury/sbdb/internal/cow"
	"github.com/wilgaboury/sbdb/internal/pathlock"
)

// FileReadGuard holds the shared lock plan for a file read and exposes its
// absolute on-disk path so the caller can perform arbitrary I/O via
// standard filesystem operations.
type FileReadGuard struct {
	Path  string
	locks []*pathlock.Lock
}

// Exists reports whether Path currently exists, recovered from the
// original implementation's open-with-create guard shape: this module's
// guards never auto-create on read, so callers that need to distinguish
// "not yet written" from "I/O error" can probe first.
func (g *FileReadGuard) Exists() bool {
	_, err := os.Stat(g.Path)
	return err == nil
}

// Release releases every lock this guard holds, in reverse acquisition
// order.
func (g *FileReadGuard) Release() {
	releaseLocks(g.locks)
	g.locks = nil
}

// FileWriteGuard holds the write lock plan for a file and exposes a CoW
// factory.
type FileWriteGuard struct {
	Path  string
	locks []*pathlock.Lock
}

// Cow begins a file copy-on-write session rooted at Path.
func (g *FileWriteGuard) Cow() (*cow.FileStage, error) {
	return cow.BeginFile(g.Path)
}

// Release releases every lock this guard holds, in reverse acquisition
// order.
func (g *FileWriteGuard) Release() {
	releaseLocks(g.locks)
	g.locks = nil
}

// DirReadGuard holds the shared lock plan for a directory read.
type DirReadGuard struct {
	Path  string
	locks []*pathlock.Lock
}

// Exists reports whether Path currently exists.
func (g *DirReadGuard) Exists() bool {
	_, err := os.Stat(g.Path)
	return err == nil
}

// Release releases every lock this guard holds, in reverse acquisition
// order.
func (g *DirReadGuard) Release() {
	releaseLocks(g.locks)
	g.locks = nil
}

// DirWriteGuard holds the write lock plan for a directory and exposes both
// CoW factories.
type DirWriteGuard struct {
	Path  string
	locks []*pathlock.Lock
	cfg   *Config
}

// Cow begins a non-atomic directory copy-on-write session rooted at Path.
func (g *DirWriteGuard) Cow() (*cow.DirStage, error) {
	return cow.BeginDir(g.Path)
}

// CowAtomic begins an atomic (symlink-swap) directory copy-on-write
// session. subpath, if non-empty, names a descendant of Path to stage
// instead of Path itself - the caller is responsible for ensuring subpath
// falls under this guard's write-locked subtree, per the transaction
// planner's "operations exposed while live" contract.
func (g *DirWriteGuard) CowAtomic(subpath string) (*cow.AtomicDirStage, error) {
	if !cow.AtomicDirSupported(g.cfg.atomicDirMode()) {
		return nil, cow.ErrAtomicDirUnavailable
	}
	target := g.Path
	if subpath != "" {
		target = filepath.Join(g.Path, subpath)
	}
	return cow.BeginAtomicDir(target)
}

// CreateDirAtomic is exactly CowAtomic(subpath) followed by Commit - a
// convenience for "publish subpath as a fresh atomic directory".
func (g *DirWriteGuard) CreateDirAtomic(subpath string) error {
	stage, err := g.CowAtomic(subpath)
	if err != nil {
		return err
	}
	return stage.Commit()
}

// Release releases every lock this guard holds, in reverse acquisition
// order.
func (g *DirWriteGuard) Release() {
	releaseLocks(g.locks)
	g.locks = nil
}
