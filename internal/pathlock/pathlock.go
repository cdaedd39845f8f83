// Package pathlock implements the path-lock primitive: a per-path
// reader/writer lock with writer preference, built entirely from OS
// advisory locks on two sidecar files (a main lock and a queue lock).
//
// The queue file serializes acquisition intent. While any acquirer -
// shared or exclusive - is waiting to take the main lock, it holds the
// queue exclusively, so no other acquirer can even attempt the main lock.
// This gives writer preference: a writer that reaches the queue stops new
// readers from queuing, letting existing readers drain and the writer take
// the main lock. Both readers and writers follow the identical sequence:
// exclusive-lock the queue, then lock the main file (shared or exclusive),
// then release the queue. Preserving that exact sequence for both sides is
// the one thing a re-implementation must not get wrong.
package pathlock

import (
	"github.com/gofrs/flock"

	"github.com/wilgaboury/sbdb/internal/dberr"
	"github.com/wilgaboury/sbdb/internal/dblog"
	"github.com/wilgaboury/sbdb/internal/sidecar"
)

// Kind distinguishes a shared (reader) lock from an exclusive (writer)
// lock.
type Kind int

const (
	Shared Kind = iota
	Exclusive
)

func (k Kind) String() string {
	if k == Exclusive {
		return "exclusive"
	}
	return "shared"
}

// Lock represents a held path-lock. The zero value is not usable; obtain
// one via Acquire, AcquireShared, AcquireExclusive, or the Try* variants.
type Lock struct {
	target string
	kind   Kind
	main   *flock.Flock
}

// Target returns the logical absolute path this lock protects.
func (l *Lock) Target() string { return l.target }

// Kind returns whether this is a shared or exclusive lock.
func (l *Lock) Kind() Kind { return l.kind }

// Acquire takes a lock of the given kind on target, blocking until
// granted. target must be an absolute path; lock files are created
// alongside it on first use if absent.
func Acquire(target string, kind Kind) (*Lock, error) {
	dir, base, err := sidecar.Split(target)
	if err != nil {
		return nil, err
	}

	queue := flock.New(sidecar.QueuePath(dir, base))
	main := flock.New(sidecar.LockPath(dir, base))

	if err := queue.Lock(); err != nil {
		return nil, dberr.Lock("pathlock.acquireQueue", err).WithContext("target", target)
	}
	defer func() {
		if err := queue.Unlock(); err != nil {
			dblog.Warn("releasing queue lock for %s: %v", target, err)
		}
	}()

	if kind == Exclusive {
		if err := main.Lock(); err != nil {
			return nil, dberr.Lock("pathlock.acquireMainExclusive", err).WithContext("target", target)
		}
	} else {
		if err := main.RLock(); err != nil {
			return nil, dberr.Lock("pathlock.acquireMainShared", err).WithContext("target", target)
		}
	}

	return &Lock{target: target, kind: kind, main: main}, nil
}

// AcquireShared takes a shared (reader) lock on target, blocking until
// granted.
func AcquireShared(target string) (*Lock, error) { return Acquire(target, Shared) }

// AcquireExclusive takes an exclusive (writer) lock on target, blocking
// until granted.
func AcquireExclusive(target string) (*Lock, error) { return Acquire(target, Exclusive) }

// TryAcquire attempts to take a lock of the given kind on target without
// blocking. ok is false if the lock is currently unavailable (not an
// error); callers should treat a false ok as "try again later", not as
// target being permanently inaccessible. Unlike Acquire, a try-acquisition
// never waits at the queue either, so it cannot itself create writer
// starvation for a pending blocking acquirer.
func TryAcquire(target string, kind Kind) (ok bool, lock *Lock, err error) {
	dir, base, err := sidecar.Split(target)
	if err != nil {
		return false, nil, err
	}

	queue := flock.New(sidecar.QueuePath(dir, base))
	main := flock.New(sidecar.LockPath(dir, base))

	gotQueue, err := queue.TryLock()
	if err != nil {
		return false, nil, dberr.Lock("pathlock.tryAcquireQueue", err).WithContext("target", target)
	}
	if !gotQueue {
		return false, nil, nil
	}
	defer func() {
		if err := queue.Unlock(); err != nil {
			dblog.Warn("releasing queue lock for %s: %v", target, err)
		}
	}()

	var gotMain bool
	if kind == Exclusive {
		gotMain, err = main.TryLock()
	} else {
		gotMain, err = main.TryRLock()
	}
	if err != nil {
		return false, nil, dberr.Lock("pathlock.tryAcquireMain", err).WithContext("target", target)
	}
	if !gotMain {
		return false, nil, nil
	}

	return true, &Lock{target: target, kind: kind, main: main}, nil
}

// TryAcquireShared is the non-blocking counterpart of AcquireShared.
func TryAcquireShared(target string) (bool, *Lock, error) { return TryAcquire(target, Shared) }

// TryAcquireExclusive is the non-blocking counterpart of AcquireExclusive.
func TryAcquireExclusive(target string) (bool, *Lock, error) { return TryAcquire(target, Exclusive) }

// Release releases the lock. Per the error handling design, release
// failures are logged and swallowed rather than surfaced - the caller is
// exiting this lock's scope regardless.
func (l *Lock) Release() {
	if l == nil || l.main == nil {
		return
	}
	if err := l.main.Unlock(); err != nil {
		dblog.Warn("releasing %s lock on %s: %v", l.kind, l.target, err)
	}
}
