package sbdb

import (
	"path/filepath"

	"github.com/wilgaboury/sbdb/internal/cow"
	"github.com/wilgaboury/sbdb/internal/lockplan"
	"github.com/wilgaboury/sbdb/internal/txplan"
)

// TxBuilder accumulates a declared read/write set for a transaction.
// Terminated by Begin, which plans and acquires the full lock set or
// fails cleanly.
type TxBuilder struct {
	client *Client
	reads  []string
	writes []string
}

// Tx returns a new transaction builder bound to this client's root.
func (c *Client) Tx() *TxBuilder {
	return &TxBuilder{client: c}
}

// Read declares relpath as part of the transaction's read set.
func (b *TxBuilder) Read(relpath string) *TxBuilder {
	b.reads = append(b.reads, relpath)
	return b
}

// Write declares relpath as part of the transaction's write set.
func (b *TxBuilder) Write(relpath string) *TxBuilder {
	b.writes = append(b.writes, relpath)
	return b
}

// Begin plans (expand, prune, sort) and acquires the full lock set for the
// declared read/write paths. On any acquisition failure everything already
// acquired is released, in reverse order, and the failure is returned.
func (b *TxBuilder) Begin() (*Transaction, error) {
	plan, err := txplan.Build(b.client.root, b.reads, b.writes)
	if err != nil {
		return nil, err
	}
	tx, err := txplan.Acquire(plan)
	if err != nil {
		return nil, err
	}
	return &Transaction{client: b.client, tx: tx}, nil
}

// Transaction is a live, lock-holding transaction. Releasing it releases
// every lock in the plan, in reverse acquisition order. Committing a CoW
// stage created through a transaction does not itself release any lock -
// only Release (i.e. the transaction's scope ending) does.
type Transaction struct {
	client *Client
	tx     *txplan.Transaction
}

// abs resolves relpath against the transaction's root. The transaction
// does not re-verify that relpath falls under one of its acquired write
// entries - per the transaction planner's "operations exposed while a
// transaction is live" contract, that is the caller's responsibility.
func (tx *Transaction) abs(relpath string) string {
	rel, err := lockplan.Normalize(relpath)
	if err != nil || rel == "" {
		return tx.client.root
	}
	return filepath.Join(tx.client.root, filepath.FromSlash(rel))
}

// FileCow begins a file copy-on-write session rooted at relpath.
func (tx *Transaction) FileCow(relpath string) (*cow.FileStage, error) {
	return cow.BeginFile(tx.abs(relpath))
}

// DirCow begins a non-atomic directory copy-on-write session rooted at
// relpath.
func (tx *Transaction) DirCow(relpath string) (*cow.DirStage, error) {
	return cow.BeginDir(tx.abs(relpath))
}

// DirCowAtomic begins an atomic (symlink-swap) directory copy-on-write
// session rooted at relpath.
func (tx *Transaction) DirCowAtomic(relpath string) (*cow.AtomicDirStage, error) {
	if !cow.AtomicDirSupported(tx.client.cfg.atomicDirMode()) {
		return nil, cow.ErrAtomicDirUnavailable
	}
	return cow.BeginAtomicDir(tx.abs(relpath))
}

// Entries returns the transaction's acquired lock plan, most useful for
// the property tests in spec §8 that probe lock state via a side channel
// (e.g. verifying the canonical sort order, or that nested writes were
// pruned to a single exclusive entry).
func (tx *Transaction) Entries() []txplan.Entry {
	return tx.tx.Entries()
}

// Release releases every lock this transaction holds, in reverse
// acquisition order.
func (tx *Transaction) Release() {
	tx.tx.Release()
}
