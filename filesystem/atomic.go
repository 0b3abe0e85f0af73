package filesystem

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// WriteFileAtomic writes data to a temporary file alongside path and renames
// it into place, so that a reader never observes a partially-written file.
// It's used to persist cache entries (spec section 4.5: "write to a temporary
// file, then rename over the cache file"); the orchestrator's rotation and
// the subprocesses' output files do not go through it.
//
// The temporary file is created in the same directory as path, both so the
// final rename is guaranteed to be same-filesystem (required for atomicity)
// and so the original staging behavior of never touching a separate temp
// directory is preserved. The name is suffixed with a uuid rather than
// relying on ioutil.TempFile's counter so that two independent atomic writes
// racing against the same path (e.g. a misbehaving concurrent invocation
// against one cache entry, which spec section 5 calls undefined behavior but
// which shouldn't corrupt a third party's temp file) can never collide.
func WriteFileAtomic(path string, data []byte, permissions os.FileMode) error {
	dirname, basename := filepath.Split(path)
	temporaryName := filepath.Join(dirname, basename+"."+uuid.New().String()+".tmp")

	temporary, err := os.OpenFile(temporaryName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, permissions)
	if err != nil {
		return errors.Wrap(err, "unable to create temporary file")
	}

	// Write data.
	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		os.Remove(temporaryName)
		return errors.Wrap(err, "unable to write data to temporary file")
	}

	// Close out the file.
	if err := temporary.Close(); err != nil {
		os.Remove(temporaryName)
		return errors.Wrap(err, "unable to close temporary file")
	}

	// Set the file's permissions explicitly; O_CREATE's mode argument is
	// subject to umask, and we want exactly the requested permissions.
	if err := os.Chmod(temporaryName, permissions); err != nil {
		os.Remove(temporaryName)
		return errors.Wrap(err, "unable to change file permissions")
	}

	// Rename the file.
	if err := os.Rename(temporaryName, path); err != nil {
		os.Remove(temporaryName)
		if isCrossDeviceError(err) {
			return errors.Wrap(err, "unable to rename file (cache directory spans devices)")
		}
		return errors.Wrap(err, "unable to rename file")
	}

	// Success.
	return nil
}
