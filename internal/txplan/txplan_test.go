package txplan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilgaboury/sbdb/internal/pathlock"
)

func relKinds(entries []Entry) map[string]pathlock.Kind {
	m := make(map[string]pathlock.Kind, len(entries))
	for _, e := range entries {
		m[e.Rel] = e.Kind
	}
	return m
}

func TestBuildExpandsAncestorsAsShared(t *testing.T) {
	plan, err := Build("/root", []string{"a/b/c"}, nil)
	require.NoError(t, err)

	kinds := relKinds(plan)
	assert.Equal(t, pathlock.Shared, kinds[""])
	assert.Equal(t, pathlock.Shared, kinds["a"])
	assert.Equal(t, pathlock.Shared, kinds["a/b"])
	assert.Equal(t, pathlock.Shared, kinds["a/b/c"])
}

func TestBuildWritePromotesLeafAndSharedAncestors(t *testing.T) {
	plan, err := Build("/root", nil, []string{"a/b/c"})
	require.NoError(t, err)

	kinds := relKinds(plan)
	assert.Equal(t, pathlock.Exclusive, kinds["a/b/c"])
	assert.Equal(t, pathlock.Shared, kinds["a/b"])
	assert.Equal(t, pathlock.Shared, kinds["a"])
	assert.Equal(t, pathlock.Shared, kinds[""])
}

// TestBuildPrunesNestedWrites covers the nested-write-subsumption case: a
// write on "a" and a write on "a/b" should collapse to a single exclusive
// entry on "a", since an exclusive ancestor already covers the descendant.
func TestBuildPrunesNestedWrites(t *testing.T) {
	plan, err := Build("/root", nil, []string{"a", "a/b"})
	require.NoError(t, err)

	kinds := relKinds(plan)
	require.Contains(t, kinds, "a")
	assert.Equal(t, pathlock.Exclusive, kinds["a"])
	_, stillPresent := kinds["a/b"]
	assert.False(t, stillPresent, "a/b should have been pruned as a nested write")
}

// TestBuildSuppressesDominatedReads covers a read that is subsumed by a
// write on the same path or an ancestor: the read must not appear twice
// (once shared, once exclusive), and must not survive as a redundant
// shared entry alongside the stronger exclusive one.
func TestBuildSuppressesDominatedReads(t *testing.T) {
	plan, err := Build("/root", []string{"a/b"}, []string{"a"})
	require.NoError(t, err)

	kinds := relKinds(plan)
	assert.Equal(t, pathlock.Exclusive, kinds["a"])
	_, stillPresent := kinds["a/b"]
	assert.False(t, stillPresent, "a/b read is dominated by the write on its ancestor a")
}

func TestBuildSuppressesReadOnSameWrittenPath(t *testing.T) {
	plan, err := Build("/root", []string{"a"}, []string{"a"})
	require.NoError(t, err)

	count := 0
	for _, e := range plan {
		if e.Rel == "a" {
			count++
			assert.Equal(t, pathlock.Exclusive, e.Kind)
		}
	}
	assert.Equal(t, 1, count, "path written and read must appear exactly once, as exclusive")
}

// TestBuildCanonicalOrderPreventsDeadlock ensures the emitted plan is
// sorted by absolute path regardless of the order reads/writes were
// declared in - the global acquisition order every transaction must agree
// on to avoid circular wait.
func TestBuildCanonicalOrderPreventsDeadlock(t *testing.T) {
	planA, err := Build("/root", []string{"z", "a", "m/n"}, nil)
	require.NoError(t, err)
	planB, err := Build("/root", []string{"m/n", "z", "a"}, nil)
	require.NoError(t, err)

	require.Equal(t, len(planA), len(planB))
	for i := range planA {
		assert.Equal(t, planA[i].Abs, planB[i].Abs, "entry %d order must be declaration-order independent", i)
	}
	for i := 1; i < len(planA); i++ {
		assert.Less(t, planA[i-1].Abs, planA[i].Abs, "plan must be sorted ascending by absolute path")
	}
}

func TestAcquireReleaseRoundTrip(t *testing.T) {
	root := t.TempDir()
	plan, err := Build(root, []string{"a/b"}, []string{"c"})
	require.NoError(t, err)

	tx, err := Acquire(plan)
	require.NoError(t, err)
	assert.Equal(t, plan, tx.Entries())
	tx.Release()
}

// TestAcquireBlocksOnContendedEntry checks that a transaction whose plan
// includes a path another transaction already holds exclusively blocks
// (rather than failing outright) until that holder releases - Acquire
// takes each entry with the blocking pathlock.Acquire, not a try-variant.
func TestAcquireBlocksOnContendedEntry(t *testing.T) {
	root := t.TempDir()

	first, err := Build(root, nil, []string{"b"})
	require.NoError(t, err)
	holder, err := Acquire(first)
	require.NoError(t, err)

	second, err := Build(root, nil, []string{"a", "b"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		tx, err := Acquire(second)
		if err == nil {
			tx.Release()
		}
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("second transaction should have blocked on b while the first holds it")
	case <-time.After(100 * time.Millisecond):
	}

	holder.Release()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("second transaction never unblocked after the first released")
	}
}
