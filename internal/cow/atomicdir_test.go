package cow

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicDirSupported(t *testing.T) {
	if runtime.GOOS == "windows" {
		assert.False(t, AtomicDirSupported(AtomicDirAuto))
		assert.True(t, AtomicDirSupported(AtomicDirForce))
		assert.False(t, AtomicDirSupported(AtomicDirDisable))
		return
	}
	assert.True(t, AtomicDirSupported(AtomicDirAuto))
	assert.True(t, AtomicDirSupported(AtomicDirForce))
	assert.False(t, AtomicDirSupported(AtomicDirDisable))
}

func TestBeginAtomicDirFreshPath(t *testing.T) {
	dir := t.TempDir()
	current := filepath.Join(dir, "data")

	stage, err := BeginAtomicDir(current)
	require.NoError(t, err)

	info, err := os.Stat(stage.Path())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestAtomicDirStageCommitPublishesSymlink(t *testing.T) {
	dir := t.TempDir()
	current := filepath.Join(dir, "data")

	stage, err := BeginAtomicDir(current)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(stage.Path(), "v1.txt"), []byte("v1"), 0o644))
	require.NoError(t, stage.Commit())

	info, err := os.Lstat(current)
	require.NoError(t, err)
	assert.True(t, info.Mode()&os.ModeSymlink != 0, "current should now be a symlink")

	got, err := os.ReadFile(filepath.Join(current, "v1.txt"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))
}

func TestAtomicDirStageCommitSwapsPreviousTarget(t *testing.T) {
	dir := t.TempDir()
	current := filepath.Join(dir, "data")

	first, err := BeginAtomicDir(current)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(first.Path(), "v1.txt"), []byte("v1"), 0o644))
	require.NoError(t, first.Commit())

	priorTarget, err := os.Readlink(current)
	require.NoError(t, err)
	priorTargetAbs := filepath.Join(dir, priorTarget)

	second, err := BeginAtomicDir(current)
	require.NoError(t, err)
	// The second stage must have inherited v1's content from the symlink
	// target it replaces.
	got, err := os.ReadFile(filepath.Join(second.Path(), "v1.txt"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))

	require.NoError(t, os.WriteFile(filepath.Join(second.Path(), "v2.txt"), []byte("v2"), 0o644))
	require.NoError(t, second.Commit())

	got, err = os.ReadFile(filepath.Join(current, "v2.txt"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))

	_, err = os.Stat(priorTargetAbs)
	assert.True(t, os.IsNotExist(err), "prior target should have been reaped after a successful swap")
}

func TestAtomicDirStageCommitConvertsRealDirectory(t *testing.T) {
	dir := t.TempDir()
	current := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(current, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(current, "a.txt"), []byte("A"), 0o644))

	stage, err := BeginAtomicDir(current)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(stage.Path(), "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "A", string(got))

	require.NoError(t, stage.Commit())

	info, err := os.Lstat(current)
	require.NoError(t, err)
	assert.True(t, info.Mode()&os.ModeSymlink != 0, "converted directory must now be a symlink")
}
