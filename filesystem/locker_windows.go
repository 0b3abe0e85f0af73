//go:build windows

package filesystem

import (
	"golang.org/x/sys/windows"
)

// Lock acquires the advisory write lock, blocking if block is true and the
// lock is currently held elsewhere. If block is false, Lock returns
// immediately with an error if the lock is unavailable.
func (l *Locker) Lock(block bool) error {
	var flags uint32 = windows.LOCKFILE_EXCLUSIVE_LOCK
	if !block {
		flags |= windows.LOCKFILE_FAIL_IMMEDIATELY
	}
	var overlapped windows.Overlapped
	return windows.LockFileEx(windows.Handle(l.file.Fd()), flags, 0, 1, 0, &overlapped)
}

// Unlock releases the advisory write lock.
func (l *Locker) Unlock() error {
	var overlapped windows.Overlapped
	return windows.UnlockFileEx(windows.Handle(l.file.Fd()), 0, 1, 0, &overlapped)
}
