package sbdb

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/wilgaboury/sbdb/internal/cow"
)

// Config carries the handful of policy knobs the core otherwise hard-codes
// spec defaults for. It is entirely optional - DefaultConfig matches the
// spec's behavior exactly.
type Config struct {
	// WindowsAtomicDir governs whether cow_atomic is attempted on
	// Windows: "auto" (unavailable by default, the safe choice), "force"
	// (always attempt the symlink swap), or "disable" (always reject).
	// On other platforms "auto" and "force" both allow atomic directories,
	// and "disable" still rejects them.
	WindowsAtomicDir string `toml:"windows_atomic_dir"`

	// RIDAlphabetCheck, when true, makes every generated RID assert its
	// own shape against the documented alphabet before use (wired to
	// internal/sidecar.CheckAlphabet by OpenWithConfig) - a development
	// aid, not a correctness requirement.
	RIDAlphabetCheck bool `toml:"rid_alphabet_check"`

	// GCBackupGraceSeconds is the minimum age a staged artifact (tmp,
	// backup, dir-stage, tmplink sidecar) must reach, by its own mtime,
	// before Client.GC will reap it even once the liveness probe finds
	// it quiescent. Zero (the default) applies no grace period - only
	// the liveness probe gates reaping. Passed through to
	// internal/gc.Sweep on every GC call.
	GCBackupGraceSeconds int `toml:"gc_backup_grace_seconds"`
}

// DefaultConfig returns the spec-default configuration.
func DefaultConfig() *Config {
	return &Config{
		WindowsAtomicDir: string(cow.AtomicDirAuto),
		RIDAlphabetCheck: false,
		GCBackupGraceSeconds: 0,
	}
}

// LoadConfig reads a TOML configuration file at path, starting from
// DefaultConfig for any field the file omits.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) atomicDirMode() cow.AtomicDirMode {
	if c == nil {
		return cow.AtomicDirAuto
	}
	switch cow.AtomicDirMode(c.WindowsAtomicDir) {
	case cow.AtomicDirForce:
		return cow.AtomicDirForce
	case cow.AtomicDirDisable:
		return cow.AtomicDirDisable
	default:
		return cow.AtomicDirAuto
	}
}
