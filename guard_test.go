package sbdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilgaboury/sbdb/internal/cow"
)

func TestDirWriteGuardCowAtomic(t *testing.T) {
	client, err := Open(t.TempDir())
	require.NoError(t, err)

	w, err := client.WriteDir("snapshot")
	require.NoError(t, err)
	defer w.Release()

	require.NoError(t, w.CreateDirAtomic(""))

	info, err := os.Lstat(filepath.Join(client.Root(), "snapshot"))
	require.NoError(t, err)
	assert.True(t, info.Mode()&os.ModeSymlink != 0)
}

func TestDirWriteGuardCowAtomicDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowsAtomicDir = "disable"
	client, err := OpenWithConfig(t.TempDir(), cfg)
	require.NoError(t, err)

	w, err := client.WriteDir("snapshot")
	require.NoError(t, err)
	defer w.Release()

	_, err = w.CowAtomic("")
	assert.ErrorIs(t, err, cow.ErrAtomicDirUnavailable)
}

func TestDirReadGuardExists(t *testing.T) {
	client, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(client.Root(), "present"), 0o755))

	present, err := client.ReadDir("present")
	require.NoError(t, err)
	defer present.Release()
	assert.True(t, present.Exists())

	absent, err := client.ReadDir("absent")
	require.NoError(t, err)
	defer absent.Release()
	assert.False(t, absent.Exists())
}
