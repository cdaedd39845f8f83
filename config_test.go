package sbdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilgaboury/sbdb/internal/cow"
)

func TestDefaultConfigMatchesSpecDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, string(cow.AtomicDirAuto), cfg.WindowsAtomicDir)
	assert.False(t, cfg.RIDAlphabetCheck)
	assert.Equal(t, 0, cfg.GCBackupGraceSeconds)
	assert.Equal(t, cow.AtomicDirAuto, cfg.atomicDirMode())
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "sbdb.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sbdb.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
windows_atomic_dir = "force"
rid_alphabet_check = true
gc_backup_grace_seconds = 30
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "force", cfg.WindowsAtomicDir)
	assert.True(t, cfg.RIDAlphabetCheck)
	assert.Equal(t, 30, cfg.GCBackupGraceSeconds)
	assert.Equal(t, cow.AtomicDirForce, cfg.atomicDirMode())
}

func TestAtomicDirModeMapping(t *testing.T) {
	cases := []struct {
		raw  string
		want cow.AtomicDirMode
	}{
		{"force", cow.AtomicDirForce},
		{"disable", cow.AtomicDirDisable},
		{"auto", cow.AtomicDirAuto},
		{"garbage", cow.AtomicDirAuto},
		{"", cow.AtomicDirAuto},
	}
	for _, c := range cases {
		cfg := &Config{WindowsAtomicDir: c.raw}
		assert.Equal(t, c.want, cfg.atomicDirMode(), "mode %q", c.raw)
	}
}

func TestAtomicDirModeNilReceiverIsAuto(t *testing.T) {
	var cfg *Config
	assert.Equal(t, cow.AtomicDirAuto, cfg.atomicDirMode())
}
