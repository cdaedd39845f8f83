// Package sidecar names and parses the hidden sidecar files sbdb keeps
// alongside every user path: lock files, queue files, copy-on-write
// staging artifacts, and commit backups. All sidecars share the
// `.<basename>.<suffix>.sbdb` naming scheme from the data model.
package sidecar

import (
	"path/filepath"
	"strings"

	"github.com/wilgaboury/sbdb/internal/dberr"
)

const ext = ".sbdb"

const (
	suffixLock    = "lock"
	suffixQueue   = "queue"
	suffixTmp     = "tmp"
	suffixTmpLink = "tmplnk"
	suffixDir     = "dir"
	suffixBak     = "bak"
)

// Split separates an absolute path into its parent directory and basename,
// returning a CategoryPath dberr.Error if either is empty (the spec's
// "path error" case: no basename or no parent).
func Split(absPath string) (dir, base string, err error) {
	clean := filepath.Clean(absPath)
	dir = filepath.Dir(clean)
	base = filepath.Base(clean)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", "", dberr.Newf("sidecar.Split", dberr.CategoryPath, "path %q has no basename", absPath)
	}
	if dir == "" {
		return "", "", dberr.Newf("sidecar.Split", dberr.CategoryPath, "path %q has no parent", absPath)
	}
	return dir, base, nil
}

func sidecarName(base, suffix string) string {
	return "." + base + "." + suffix + ext
}

// LockPath returns the main lock sidecar for base inside dir.
func LockPath(dir, base string) string { return filepath.Join(dir, sidecarName(base, suffixLock)) }

// QueuePath returns the queue sidecar for base inside dir.
func QueuePath(dir, base string) string { return filepath.Join(dir, sidecarName(base, suffixQueue)) }

// TmpPath returns the non-atomic staging sidecar (file CoW, or directory
// CoW's non-atomic variant) for base inside dir.
func TmpPath(dir, base string) string { return filepath.Join(dir, sidecarName(base, suffixTmp)) }

// TmpLinkPath returns the temporary symlink used to publish an atomic
// directory commit.
func TmpLinkPath(dir, base string) string {
	return filepath.Join(dir, sidecarName(base, suffixTmpLink))
}

// DirStagePath returns the atomic-directory staging sidecar for base and a
// given RID inside dir.
func DirStagePath(dir, base, rid string) string {
	return filepath.Join(dir, sidecarName(base, rid+"."+suffixDir))
}

// BackupPath returns the commit-rollback backup sidecar for base and a
// given RID inside dir.
func BackupPath(dir, base, rid string) string {
	return filepath.Join(dir, sidecarName(base, rid+"."+suffixBak))
}

// Kind describes what a sidecar's suffix means, for the GC sweep.
type Kind int

const (
	KindUnknown Kind = iota
	KindLock
	KindQueue
	KindTmp
	KindTmpLink
	KindDirStage
	KindBackup
)

func (k Kind) String() string {
	switch k {
	case KindLock:
		return "Lock"
	case KindQueue:
		return "Queue"
	case KindTmp:
		return "Tmp"
	case KindTmpLink:
		return "TmpLink"
	case KindDirStage:
		return "DirStage"
	case KindBackup:
		return "Backup"
	default:
		return "Unknown"
	}
}

// Parsed is a sidecar filename broken into its target basename and kind.
type Parsed struct {
	Target string
	Kind   Kind
	RID    string // set for KindDirStage and KindBackup
}

// ParseName parses a directory entry's name as a sidecar, returning ok=false
// if name is not one of sbdb's sidecars.
func ParseName(name string) (Parsed, bool) {
	if !strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
		return Parsed{}, false
	}
	trimmed := strings.TrimPrefix(name, ".")
	trimmed = strings.TrimSuffix(trimmed, ext)

	parts := strings.Split(trimmed, ".")
	if len(parts) < 2 {
		return Parsed{}, false
	}

	last := parts[len(parts)-1]
	switch last {
	case suffixLock:
		return Parsed{Target: strings.Join(parts[:len(parts)-1], "."), Kind: KindLock}, true
	case suffixQueue:
		return Parsed{Target: strings.Join(parts[:len(parts)-1], "."), Kind: KindQueue}, true
	case suffixTmp:
		return Parsed{Target: strings.Join(parts[:len(parts)-1], "."), Kind: KindTmp}, true
	case suffixTmpLink:
		return Parsed{Target: strings.Join(parts[:len(parts)-1], "."), Kind: KindTmpLink}, true
	case suffixDir, suffixBak:
		if len(parts) < 3 {
			return Parsed{}, false
		}
		rid := parts[len(parts)-2]
		target := strings.Join(parts[:len(parts)-2], ".")
		kind := KindDirStage
		if last == suffixBak {
			kind = KindBackup
		}
		return Parsed{Target: target, Kind: kind, RID: rid}, true
	default:
		return Parsed{}, false
	}
}
