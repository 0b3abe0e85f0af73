// Package filesystem implements the file I/O helper of spec section 4.2: a
// thin layer over per-(name, directory) file operations, plus the atomic
// write and advisory locking helpers the orchestrator and entry store build
// on. Adapted from the teacher's atomic.go/locker.go.
package filesystem

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ReadWholeFile loads the named file (relative to dir) fully into memory.
// Per spec section 4.2, failures here are fatal to the caller; this function
// itself just wraps the underlying OS error so the caller can report it.
func ReadWholeFile(name, dir string) ([]byte, error) {
	path := Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", path)
	}
	return data, nil
}

// Join combines a directory and a leaf name into a full path. It's a
// thin, filesystem-package-local alias so call sites that already import
// filesystem don't need a second import solely for path joining.
func Join(dir, name string) string {
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

// ExistsAsRegularFile reports whether name (relative to dir) exists and is a
// regular file. It returns false on any error, including a stat failure or
// the entry being a directory or other non-regular type (spec section 4.2).
func ExistsAsRegularFile(name, dir string) bool {
	info, err := os.Stat(Join(dir, name))
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// Unlink removes the named file relative to dir. Removing a file that
// doesn't exist is not an error, matching the "unlink if present" idiom used
// throughout the orchestrator (spec section 4.6, steps R and C).
func Unlink(name, dir string) error {
	path := Join(dir, name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "unable to remove %s", path)
	}
	return nil
}

// Rename renames oldName to newName, both relative to dir.
func Rename(oldName, newName, dir string) error {
	oldPath, newPath := Join(dir, oldName), Join(dir, newName)
	if err := os.Rename(oldPath, newPath); err != nil {
		return errors.Wrapf(err, "unable to rename %s to %s", oldPath, newPath)
	}
	return nil
}

// CreateTruncate creates (or truncates) the named file relative to dir for
// writing, with mode 0777 intersected with the process umask, matching the
// stdout-redirect semantics of spec section 4.3. The kernel applies the
// umask intersection automatically on file creation, so no manual masking
// is required here.
func CreateTruncate(name, dir string) (*os.File, error) {
	path := Join(dir, name)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o777)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create %s", path)
	}
	return file, nil
}
