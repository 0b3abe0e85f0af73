// Package pathutil implements the path resolver described in spec section
// 4.1: canonicalization, leaf extraction, joining, prefix comparison and
// cache-directory-relative path expression, with behavior that honors the
// case and separator conventions of the host platform.
package pathutil

import (
	"errors"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrUnsupportedPath is returned by MakeRelative when path cannot be
// expressed relative to dir without a ".." traversal. The current design
// does not synthesize such traversals (spec section 4.1, section 9).
var ErrUnsupportedPath = errors.New("pathutil: path cannot be made relative to directory without traversal")

// caseInsensitive reports whether the host platform's filesystem is
// conventionally case-insensitive. This mirrors the platform split that the
// teacher keeps behind its filesystem package rather than branching on OS in
// higher-level code (spec section 9, "Path handling divergence by platform").
func caseInsensitive() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}

// normalizeSeparators converts backslashes to forward slashes so that the two
// are treated as equal wherever the platform allows both (spec section 4.1).
func normalizeSeparators(path string) string {
	if runtime.GOOS == "windows" {
		return strings.ReplaceAll(path, `\`, `/`)
	}
	return path
}

// Canonicalize resolves symlinks and "."/".." components in path, returning
// an absolute path. On failure it returns the original string unchanged,
// matching spec section 4.1's fallback contract.
func Canonicalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs
	}
	return resolved
}

// FindLeaf returns the filename component of path: the portion after the
// final directory separator (or, on Windows, after a drive-letter colon with
// no separator present).
func FindLeaf(path string) string {
	return filepath.Base(normalizeSeparators(path))
}

// Join combines a directory and a leaf name into a single path.
func Join(dir, leaf string) string {
	return filepath.Join(dir, leaf)
}

// FindDir returns the directory component of path: everything before the
// final directory separator (or, on Windows, the drive-letter colon if no
// separator precedes the leaf).
func FindDir(path string) string {
	return filepath.Dir(normalizeSeparators(path))
}

// ComparePrefix reports whether the first n bytes of path equal dir, honoring
// case-insensitivity and separator normalization on platforms where the
// filesystem requires it.
func ComparePrefix(path, dir string, n int) bool {
	np := normalizeSeparators(path)
	nd := normalizeSeparators(dir)
	if n > len(np) || n > len(nd) {
		return false
	}
	pp, dp := np[:n], nd[:n]
	if caseInsensitive() {
		return strings.EqualFold(pp, dp)
	}
	return pp == dp
}

// pathsEqual compares two absolute paths for identity, honoring the same
// case/separator rules as ComparePrefix.
func pathsEqual(a, b string) bool {
	na, nb := normalizeSeparators(a), normalizeSeparators(b)
	if caseInsensitive() {
		return strings.EqualFold(na, nb)
	}
	return na == nb
}

// MakeRelative expresses path relative to dir, stripping trailing separators
// and drive punctuation. It tries both the raw and canonical forms of path
// and dir; if neither lies under the other, it fails with
// ErrUnsupportedPath rather than synthesizing a ".." traversal (spec section
// 4.1, section 9 open question c).
func MakeRelative(path, dir string) (string, error) {
	if rel, ok := tryMakeRelative(path, dir); ok {
		return rel, nil
	}
	canonPath := Canonicalize(path)
	canonDir := Canonicalize(dir)
	if rel, ok := tryMakeRelative(canonPath, canonDir); ok {
		return rel, nil
	}
	return "", ErrUnsupportedPath
}

func tryMakeRelative(path, dir string) (string, bool) {
	np := normalizeSeparators(path)
	nd := strings.TrimRight(normalizeSeparators(dir), "/")

	if !filepath.IsAbs(np) || !filepath.IsAbs(nd) {
		return "", false
	}
	if pathsEqual(np, nd) {
		return ".", true
	}
	if !ComparePrefix(np, nd+"/", len(nd)+1) {
		return "", false
	}
	rel := np[len(nd)+1:]
	if rel == "" {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, "../") || strings.Contains(rel, "/../") {
		return "", false
	}
	return filepath.FromSlash(rel), true
}
