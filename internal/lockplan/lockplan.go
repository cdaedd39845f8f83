// Package lockplan implements the hierarchical lock planner: translating a
// single logical "read P" or "write P" intent into a totally-ordered list
// of path-lock acquisitions over P and its ancestors.
//
// Read of P takes a shared lock on every ancestor of P, the root included,
// up to and including P itself. Write of P takes a shared lock on every
// strict ancestor of P (root down to P's parent) and an exclusive lock on
// P. The planner always emits root-to-leaf (shortest ancestor first); the
// caller releases in the reverse, leaf-to-root order.
package lockplan

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/wilgaboury/sbdb/internal/dberr"
	"github.com/wilgaboury/sbdb/internal/pathlock"
)

// Entry is one step of an acquisition plan: an absolute path and the kind
// of lock it needs.
type Entry struct {
	Abs string
	Rel string
	Kind pathlock.Kind
}

// Normalize cleans a caller-supplied relative path the way every public
// entry point must before deriving any lock path: trailing separators are
// stripped and "." collapses to the empty string (meaning the root
// itself). The source's known self-deadlock shortcoming - passing "."
// creating the same lock file as the root and then trying to lock it
// twice - is avoided by doing this normalization once, here, before any
// planner runs.
func Normalize(relpath string) (string, error) {
	slashed := filepath.ToSlash(relpath)
	clean := path.Clean(slashed)
	switch clean {
	case ".", "/", "":
		return "", nil
	}
	clean = strings.TrimPrefix(clean, "/")
	clean = strings.TrimSuffix(clean, "/")
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", dberr.Newf("lockplan.Normalize", dberr.CategoryPath, "path %q escapes the root", relpath)
	}
	return clean, nil
}

// Chain returns the ancestor chain of an already-normalized relative path,
// from the root ("") down to and including the path itself. Exported so
// the transaction planner can reuse the exact same ancestor arithmetic.
func Chain(normalized string) []string {
	return chain(normalized)
}

// ToAbs joins root and an already-normalized relative path the same way
// the planners do, so callers working with normalized paths stay
// consistent with the plans the planners produce.
func ToAbs(root, normalized string) string {
	return toAbs(root, normalized)
}

// chain returns the ancestor chain of a normalized relative path, from the
// root ("") down to and including the path itself.
func chain(normalized string) []string {
	if normalized == "" {
		return []string{""}
	}
	parts := strings.Split(normalized, "/")
	result := make([]string, 0, len(parts)+1)
	result = append(result, "")
	cur := ""
	for _, p := range parts {
		if cur == "" {
			cur = p
		} else {
			cur = cur + "/" + p
		}
		result = append(result, cur)
	}
	return result
}

func toAbs(root, rel string) string {
	if rel == "" {
		return filepath.Clean(root)
	}
	return filepath.Join(root, filepath.FromSlash(rel))
}

// Read builds the acquisition plan for reading relpath: shared locks on
// every ancestor of relpath (root included) up to and including relpath
// itself, root-to-leaf order.
func Read(root, relpath string) ([]Entry, error) {
	rel, err := Normalize(relpath)
	if err != nil {
		return nil, err
	}
	c := chain(rel)
	entries := make([]Entry, len(c))
	for i, r := range c {
		entries[i] = Entry{Abs: toAbs(root, r), Rel: r, Kind: pathlock.Shared}
	}
	return entries, nil
}

// Write builds the acquisition plan for writing relpath: shared locks on
// every strict ancestor of relpath (root down to relpath's parent), then
// an exclusive lock on relpath itself, root-to-leaf order.
func Write(root, relpath string) ([]Entry, error) {
	rel, err := Normalize(relpath)
	if err != nil {
		return nil, err
	}
	c := chain(rel)
	entries := make([]Entry, len(c))
	for i, r := range c {
		kind := pathlock.Shared
		if i == len(c)-1 {
			kind = pathlock.Exclusive
		}
		entries[i] = Entry{Abs: toAbs(root, r), Rel: r, Kind: kind}
	}
	return entries, nil
}
