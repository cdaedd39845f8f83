package cow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginDirCopiesTree(t *testing.T) {
	dir := t.TempDir()
	orig := filepath.Join(dir, "orig")
	require.NoError(t, os.MkdirAll(orig, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(orig, "a.txt"), []byte("A"), 0o644))

	stage, err := BeginDir(orig)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(stage.Path(), "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "A", string(got))
}

func TestDirStageCommitPublishesAndCleansBackup(t *testing.T) {
	dir := t.TempDir()
	orig := filepath.Join(dir, "orig")
	require.NoError(t, os.MkdirAll(orig, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(orig, "a.txt"), []byte("A"), 0o644))

	stage, err := BeginDir(orig)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(stage.Path(), "b.txt"), []byte("B"), 0o644))

	require.NoError(t, stage.Commit())

	got, err := os.ReadFile(filepath.Join(orig, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "B", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".bak.sbdb", "commit backup must be cleaned up")
	}
}

func TestDirStageCommitFromNonexistentOrig(t *testing.T) {
	dir := t.TempDir()
	orig := filepath.Join(dir, "fresh")

	stage, err := BeginDir(orig)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(stage.Path(), "c.txt"), []byte("C"), 0o644))

	require.NoError(t, stage.Commit())

	got, err := os.ReadFile(filepath.Join(orig, "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "C", string(got))
}

func TestDirStageAbandonLeavesStageForSweep(t *testing.T) {
	dir := t.TempDir()
	orig := filepath.Join(dir, "orig")

	stage, err := BeginDir(orig)
	require.NoError(t, err)
	stage.Abandon()

	info, err := os.Stat(stage.Path())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
