// Package txplan implements the transaction planner: it accepts a
// declared, unordered set of read and write paths, expands ancestors,
// prunes redundant entries, sorts to the canonical deadlock-avoidance
// order, and acquires the resulting plan as a unit.
package txplan

import (
	"sort"

	"github.com/wilgaboury/sbdb/internal/lockplan"
	"github.com/wilgaboury/sbdb/internal/pathlock"
)

// Entry is one step of a transaction's acquisition plan.
type Entry = lockplan.Entry

// Build expands a declared read/write set into the minimized, canonically
// sorted acquisition plan described by the transaction planner algorithm:
// expand ancestors, prune nested writes, suppress dominated reads, then
// sort lexicographically by absolute path. It does not acquire anything.
func Build(root string, reads, writes []string) ([]Entry, error) {
	readSet := make(map[string]bool)
	writeSet := make(map[string]bool)

	// 1. Expand.
	for _, r := range reads {
		rel, err := lockplan.Normalize(r)
		if err != nil {
			return nil, err
		}
		for _, a := range ancestorChain(rel) {
			readSet[a] = true
		}
	}
	for _, w := range writes {
		rel, err := lockplan.Normalize(w)
		if err != nil {
			return nil, err
		}
		writeSet[rel] = true
		for _, a := range strictAncestors(rel) {
			readSet[a] = true
		}
	}

	// 2. Prune nested writes: drop w if a strict ancestor of w is also a
	// write.
	for w := range writeSet {
		for _, a := range strictAncestors(w) {
			if writeSet[a] {
				delete(writeSet, w)
				break
			}
		}
	}

	// 3. Suppress dominated reads: drop r if r itself or any strict
	// ancestor of r is a write (the write entry provides stronger
	// coverage along that chain).
	for r := range readSet {
		for _, a := range ancestorChain(r) {
			if writeSet[a] {
				delete(readSet, r)
				break
			}
		}
	}

	// 4. Canonicalize: one list, sorted lexicographically by absolute
	// path. This is the global deadlock-avoidance order (I5).
	entries := make([]Entry, 0, len(readSet)+len(writeSet))
	for r := range readSet {
		entries = append(entries, Entry{Abs: toAbs(root, r), Rel: r, Kind: pathlock.Shared})
	}
	for w := range writeSet {
		entries = append(entries, Entry{Abs: toAbs(root, w), Rel: w, Kind: pathlock.Exclusive})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Abs < entries[j].Abs })

	return entries, nil
}

// Transaction holds the locks acquired for a plan, in acquisition order,
// so that Release can unwind them LIFO.
type Transaction struct {
	entries  []Entry
	acquired []*pathlock.Lock
}

// Entries returns the acquired plan.
func (tx *Transaction) Entries() []Entry { return tx.entries }

// Acquire acquires every entry in plan, in order. On any failure it
// releases everything already acquired, in reverse (LIFO) order, and
// returns the failure.
func Acquire(plan []Entry) (*Transaction, error) {
	tx := &Transaction{entries: plan, acquired: make([]*pathlock.Lock, 0, len(plan))}
	for _, e := range plan {
		lock, err := pathlock.Acquire(e.Abs, e.Kind)
		if err != nil {
			tx.release()
			return nil, err
		}
		tx.acquired = append(tx.acquired, lock)
	}
	return tx, nil
}

// Release releases every lock this transaction holds, in reverse
// acquisition order (deepest/last acquired first), matching the order a
// scope-based release would unwind in.
func (tx *Transaction) Release() {
	tx.release()
}

func (tx *Transaction) release() {
	for i := len(tx.acquired) - 1; i >= 0; i-- {
		tx.acquired[i].Release()
	}
	tx.acquired = tx.acquired[:0]
}

func ancestorChain(rel string) []string {
	return lockplan.Chain(rel)
}

func strictAncestors(rel string) []string {
	c := ancestorChain(rel)
	if len(c) == 0 {
		return nil
	}
	return c[:len(c)-1]
}

func toAbs(root, rel string) string {
	return lockplan.ToAbs(root, rel)
}
