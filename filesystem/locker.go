package filesystem

import (
	"os"

	"github.com/pkg/errors"
)

// Locker provides advisory, whole-file exclusive locking on a dedicated lock
// file. It's used to guard one cache entry for the duration of a run: spec
// section 5 leaves concurrent invocations against the same cache entry as
// undefined behavior that's the caller's responsibility to avoid, so this
// lock exists to fail fast rather than silently corrupt the entry when that
// responsibility isn't honored.
type Locker struct {
	// file is the underlying file object to be locked.
	file *os.File
}

// NewLocker opens (creating if necessary) the lock file at path.
func NewLocker(path string, permissions os.FileMode) (*Locker, error) {
	mode := os.O_RDWR | os.O_CREATE | os.O_APPEND
	file, err := os.OpenFile(path, mode, permissions)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open lock file")
	}
	return &Locker{file: file}, nil
}

// Close releases the underlying file handle. It does not itself unlock; call
// Unlock first if the lock is held.
func (l *Locker) Close() error {
	return l.file.Close()
}
