// copy.go implements the recursive reflink-or-copy primitive the spec
// treats as an out-of-scope external collaborator (purpose & scope, "an
// opaque reflink-or-copy primitive"). No corpus dependency provides
// filesystem reflink support in Go, so only the byte-copy fallback is
// implemented here; a filesystem that supports reflinks would plug in
// underneath CopyFile without changing any caller.
package cow

import (
	"io"
	"os"
	"path/filepath"

	"github.com/wilgaboury/sbdb/internal/dberr"
)

// CopyFile copies src to dst, creating dst (or truncating it) and
// preserving src's file mode. This is the file-granularity half of the
// reflink-or-copy primitive.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return dberr.Copy("cow.CopyFile.open", err).WithContext("src", src)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return dberr.Copy("cow.CopyFile.stat", err).WithContext("src", src)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return dberr.Copy("cow.CopyFile.create", err).WithContext("dst", dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return dberr.Copy("cow.CopyFile.copy", err).WithContext("src", src).WithContext("dst", dst)
	}
	return nil
}

// CopyTree recursively copies src to dst. Directories are created via
// MkdirAll; symlinks are re-created pointing at the same (possibly
// relative) target rather than followed; regular files go through
// CopyFile. If src does not exist, dst is created as an empty directory.
func CopyTree(src, dst string) error {
	srcInfo, err := os.Lstat(src)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(dst, 0o755); mkErr != nil {
				return dberr.Copy("cow.CopyTree.mkdir", mkErr).WithContext("dst", dst)
			}
			return nil
		}
		return dberr.Copy("cow.CopyTree.lstat", err).WithContext("src", src)
	}

	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()|0o700); err != nil {
		return dberr.Copy("cow.CopyTree.mkdirAll", err).WithContext("dst", dst)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return dberr.Copy("cow.CopyTree.readdir", err).WithContext("src", src)
	}

	for _, entry := range entries {
		srcChild := filepath.Join(src, entry.Name())
		dstChild := filepath.Join(dst, entry.Name())

		info, err := entry.Info()
		if err != nil {
			return dberr.Copy("cow.CopyTree.entryInfo", err).WithContext("path", srcChild)
		}

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(srcChild)
			if err != nil {
				return dberr.Copy("cow.CopyTree.readlink", err).WithContext("path", srcChild)
			}
			if err := os.Symlink(target, dstChild); err != nil {
				return dberr.Copy("cow.CopyTree.symlink", err).WithContext("path", dstChild)
			}
		case info.IsDir():
			if err := CopyTree(srcChild, dstChild); err != nil {
				return err
			}
		default:
			if err := CopyFile(srcChild, dstChild); err != nil {
				return err
			}
		}
	}
	return nil
}
