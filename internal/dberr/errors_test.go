package dberr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := New("pathlock.Acquire", CategoryLock, errors.New("resource temporarily unavailable"))
	assert.Equal(t, "pathlock.Acquire: resource temporarily unavailable", err.Error())
}

func TestNewfMessageOnly(t *testing.T) {
	err := Newf("lockplan.Normalize", CategoryPath, "path %q escapes the root", "../etc")
	assert.Equal(t, `lockplan.Normalize: path "../etc" escapes the root`, err.Error())
	assert.Nil(t, err.Err)
}

func TestWithRollbackAnnotatesMessage(t *testing.T) {
	ok := New("cow.DirStage.Commit.publish", CategoryCommit, errors.New("rename failed"))
	ok.WithRollback(true)
	assert.Contains(t, ok.Error(), "(rolled back)")

	failed := New("cow.DirStage.Commit.publish", CategoryCommit, errors.New("rename failed"))
	failed.WithRollback(false)
	assert.Contains(t, failed.Error(), "(rollback also failed)")
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := New("op", CategoryOpen, cause)
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestIs(t *testing.T) {
	err := Lock("pathlock.acquireMainExclusive", errors.New("x"))
	assert.True(t, Is(err, CategoryLock))
	assert.False(t, Is(err, CategoryCopy))

	wrapped := fmt.Errorf("wrapping: %w", err)
	assert.True(t, Is(wrapped, CategoryLock))

	assert.False(t, Is(errors.New("plain"), CategoryLock))
}

func TestWithContextChaining(t *testing.T) {
	err := Path("op", errors.New("x")).WithContext("root", "/tmp/a").WithContext("rel", "b/c")
	assert.Equal(t, "/tmp/a", err.Context["root"])
	assert.Equal(t, "b/c", err.Context["rel"])
}

func TestCategoryString(t *testing.T) {
	cases := map[Category]string{
		CategoryPath:    "path",
		CategoryOpen:    "open",
		CategoryLock:    "lock",
		CategoryCopy:    "copy",
		CategoryCommit:  "commit",
		CategoryCleanup: "cleanup",
		CategoryUnknown: "unknown",
	}
	for cat, want := range cases {
		assert.Equal(t, want, cat.String())
	}
}
