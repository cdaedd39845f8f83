// Package sbdb is an embedded, multi-process concurrency and
// transactional-copy layer over a directory tree on an ordinary local
// filesystem. A Client turns a root directory into a "database" whose
// entities are arbitrary files and subdirectories: callers acquire shared
// or exclusive access to individual paths, mutate data through
// copy-on-write staging areas, and commit changes with crash-tolerant
// rename protocols. Multiple independent processes cooperate purely
// through on-disk advisory lock files; there is no central daemon. A
// Client is a value reference to a root path and may be freely copied.
// The one process-wide setting is the RID alphabet self-check flag
// (sidecar.CheckAlphabet), which every OpenWithConfig call overwrites
// from its Config, so the Client opened last decides it for all Clients
// in the process.
package sbdb

import (
	"os"
	"path/filepath"

	"github.com/wilgaboury/sbdb/internal/dberr"
	"github.com/wilgaboury/sbdb/internal/gc"
	"github.com/wilgaboury/sbdb/internal/lockplan"
	"github.com/wilgaboury/sbdb/internal/pathlock"
	"github.com/wilgaboury/sbdb/internal/sidecar"
)

// Client is bound to a root directory. It carries no mutable state beyond
// the root path and config, so it may be constructed once and shared
// freely across goroutines; all serialization happens through the
// on-disk lock files, not through the Client itself.
type Client struct {
	root string
	cfg  *Config
}

// Open binds a Client to root, creating the directory if it does not
// already exist, using the default configuration.
func Open(root string) (*Client, error) {
	return OpenWithConfig(root, DefaultConfig())
}

// OpenWithConfig is Open with an explicit configuration.
func OpenWithConfig(root string, cfg *Config) (*Client, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, dberr.Path("sbdb.Open", err).WithContext("root", root)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, dberr.Open("sbdb.Open", err).WithContext("root", abs)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	sidecar.CheckAlphabet = cfg.RIDAlphabetCheck
	return &Client{root: abs, cfg: cfg}, nil
}

// Root returns the absolute root path this Client is bound to.
func (c *Client) Root() string { return c.root }

func (c *Client) abs(relpath string) (rel, abs string, err error) {
	rel, err = lockplan.Normalize(relpath)
	if err != nil {
		return "", "", err
	}
	return rel, lockplan.ToAbs(c.root, rel), nil
}

func acquirePlan(entries []lockplan.Entry) ([]*pathlock.Lock, error) {
	acquired := make([]*pathlock.Lock, 0, len(entries))
	for _, e := range entries {
		lock, err := pathlock.Acquire(e.Abs, e.Kind)
		if err != nil {
			releaseLocks(acquired)
			return nil, err
		}
		acquired = append(acquired, lock)
	}
	return acquired, nil
}

// releaseLocks releases a plan's locks in reverse (LIFO) order, matching
// the order a scope-based release unwinds in.
func releaseLocks(locks []*pathlock.Lock) {
	for i := len(locks) - 1; i >= 0; i-- {
		locks[i].Release()
	}
}

// ReadFile acquires the hierarchical read lock plan for relpath (shared
// locks on every ancestor, root through relpath inclusive) and returns a
// guard exposing its absolute path.
func (c *Client) ReadFile(relpath string) (*FileReadGuard, error) {
	_, abs, err := c.abs(relpath)
	if err != nil {
		return nil, err
	}
	plan, err := lockplan.Read(c.root, relpath)
	if err != nil {
		return nil, err
	}
	locks, err := acquirePlan(plan)
	if err != nil {
		return nil, err
	}
	return &FileReadGuard{Path: abs, locks: locks}, nil
}

// WriteFile acquires the hierarchical write lock plan for relpath (shared
// locks on every strict ancestor, exclusive on relpath) and returns a
// guard exposing its absolute path and a CoW factory.
func (c *Client) WriteFile(relpath string) (*FileWriteGuard, error) {
	_, abs, err := c.abs(relpath)
	if err != nil {
		return nil, err
	}
	plan, err := lockplan.Write(c.root, relpath)
	if err != nil {
		return nil, err
	}
	locks, err := acquirePlan(plan)
	if err != nil {
		return nil, err
	}
	return &FileWriteGuard{Path: abs, locks: locks}, nil
}

// ReadDir is ReadFile for a directory target.
func (c *Client) ReadDir(relpath string) (*DirReadGuard, error) {
	_, abs, err := c.abs(relpath)
	if err != nil {
		return nil, err
	}
	plan, err := lockplan.Read(c.root, relpath)
	if err != nil {
		return nil, err
	}
	locks, err := acquirePlan(plan)
	if err != nil {
		return nil, err
	}
	return &DirReadGuard{Path: abs, locks: locks}, nil
}

// WriteDir is WriteFile for a directory target, additionally exposing
// atomic-directory CoW factories.
func (c *Client) WriteDir(relpath string) (*DirWriteGuard, error) {
	_, abs, err := c.abs(relpath)
	if err != nil {
		return nil, err
	}
	plan, err := lockplan.Write(c.root, relpath)
	if err != nil {
		return nil, err
	}
	locks, err := acquirePlan(plan)
	if err != nil {
		return nil, err
	}
	return &DirWriteGuard{Path: abs, locks: locks, cfg: c.cfg}, nil
}

// GCResult reports what a sweep visited and removed.
type GCResult = gc.Result

// GC runs a best-effort sweep of the root tree, reaping orphaned sidecars.
func (c *Client) GC() *GCResult {
	return gc.Sweep(c.root, c.cfg.GCBackupGraceSeconds)
}

// tryAcquirePlan is acquirePlan's non-blocking counterpart: it attempts
// every entry in order without blocking, unwinding anything already
// acquired the moment one entry is contended. ok is false (with a nil
// lock slice) whenever any entry is currently held incompatibly by
// another session - that is not itself an error.
func tryAcquirePlan(entries []lockplan.Entry) (ok bool, locks []*pathlock.Lock, err error) {
	acquired := make([]*pathlock.Lock, 0, len(entries))
	for _, e := range entries {
		entryOk, lock, tryErr := pathlock.TryAcquire(e.Abs, e.Kind)
		if tryErr != nil {
			releaseLocks(acquired)
			return false, nil, tryErr
		}
		if !entryOk {
			releaseLocks(acquired)
			return false, nil, nil
		}
		acquired = append(acquired, lock)
	}
	return true, acquired, nil
}

// TryReadFile is ReadFile's non-blocking counterpart: it attempts the
// full hierarchical read plan without blocking on any entry. ok is false
// (with a nil guard) when any ancestor or relpath itself is currently
// held exclusively elsewhere.
func (c *Client) TryReadFile(relpath string) (ok bool, guard *FileReadGuard, err error) {
	_, abs, err := c.abs(relpath)
	if err != nil {
		return false, nil, err
	}
	plan, err := lockplan.Read(c.root, relpath)
	if err != nil {
		return false, nil, err
	}
	ok, locks, err := tryAcquirePlan(plan)
	if err != nil || !ok {
		return false, nil, err
	}
	return true, &FileReadGuard{Path: abs, locks: locks}, nil
}

// TryWriteFile is WriteFile's non-blocking counterpart: it attempts the
// full hierarchical write plan (shared on strict ancestors, exclusive on
// relpath) without blocking on any entry. ok is false (with a nil guard)
// when any entry in the plan is currently held incompatibly elsewhere.
func (c *Client) TryWriteFile(relpath string) (ok bool, guard *FileWriteGuard, err error) {
	_, abs, err := c.abs(relpath)
	if err != nil {
		return false, nil, err
	}
	plan, err := lockplan.Write(c.root, relpath)
	if err != nil {
		return false, nil, err
	}
	ok, locks, err := tryAcquirePlan(plan)
	if err != nil || !ok {
		return false, nil, err
	}
	return true, &FileWriteGuard{Path: abs, locks: locks}, nil
}
