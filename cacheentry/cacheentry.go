// Package cacheentry implements the cache entry data model and on-disk
// representation of spec sections 3 and 4.5: the persistent record for one
// object file, plus the ephemeral in-memory fields populated during a run.
package cacheentry

import (
	"os"

	"github.com/pkg/errors"

	"github.com/kbuild-go/kobjcache/checksum"
	"github.com/kbuild-go/kobjcache/filesystem"
)

// Entry is the per-object cache record described in spec section 3.
//
// Go's garbage collector and immutable strings mean there's no need for the
// original's single-owned-raw-buffer-with-borrowed-views scheme (spec
// section 9, "Ownership of parsed strings"): each string field below owns
// its own backing array independently, and is simply collected once the
// Entry is unreachable.
type Entry struct {
	// Dir is the canonical absolute cache directory; every other path on
	// Entry is relative to it.
	Dir string
	// Name is the cache file's leaf name within Dir.
	Name string

	// Empty is true when no on-disk file existed (or it failed to parse) at
	// Load time. A populated Entry is never Empty after a successful Load of
	// an existing, well-formed file.
	Empty bool

	// ObjectPath is the object file's path, relative to Dir, produced by the
	// last successful compile.
	ObjectPath string
	// CompileArgv is the exact argument vector passed to the compiler last
	// time.
	CompileArgv []string
	// PreprocessorOutputPath is the relative path of the file holding the
	// raw expanded text that produced the current object.
	PreprocessorOutputPath string
	// Accepted is the non-empty (on a populated entry) accepted-fingerprints
	// set.
	Accepted checksum.Set

	// --- Ephemeral, in-memory-only fields populated during a run. ---

	// NeedsCompile is set once any step D check determines recompilation is
	// required.
	NeedsCompile bool
	// NewPreprocessorOutputPath is this run's freshly preprocessed output
	// path, relative to Dir.
	NewPreprocessorOutputPath string
	// NewPreprocessorBuffer holds the freshly preprocessed output, read
	// fully into memory for fingerprinting.
	NewPreprocessorBuffer []byte
	// NewFingerprint is the fingerprint of NewPreprocessorBuffer.
	NewFingerprint checksum.Fingerprint
	// NewObjectPath is this run's (possibly unchanged) object path,
	// relative to Dir.
	NewObjectPath string
	// OldPreprocessorOutputPath is the previous preprocessor output's path
	// after rotation (suffix "-old"), kept only for the duration of the run
	// to allow a quick textual comparison in step D.
	OldPreprocessorOutputPath string
	// OldPreprocessorBuffer holds the rotated prior preprocessor output, if
	// it was read for a structural comparison.
	OldPreprocessorBuffer []byte
}

// New creates an entry in memory for the given cache-file path, with
// zero-valued fields, as though no prior on-disk file existed (spec section
// 3, lifecycle step 1).
func New(dir, name string) *Entry {
	return &Entry{Dir: dir, Name: name, Empty: true, NeedsCompile: true}
}

// ReleaseBuffers drops the ephemeral preprocessor-output buffers, matching
// spec section 4.6 step B ("release the preprocessor-text buffers ... the
// compiler may be memory-hungry") and spec section 5's peak-footprint goal.
func (e *Entry) ReleaseBuffers() {
	e.NewPreprocessorBuffer = nil
	e.OldPreprocessorBuffer = nil
}

// path returns the absolute path of the cache file itself.
func (e *Entry) path() string {
	return filesystem.Join(e.Dir, e.Name)
}

// Load reads an entry from disk at dir/name. If the file doesn't exist, or
// exists but fails to parse (e.g. a format/version mismatch — spec section
// 6: "a mismatch forces a full rebuild of the entry"), Load returns a
// zero-valued, Empty Entry with NeedsCompile set, and a nil error: cache
// miss is not a fault (spec section 7, CacheMiss).
func Load(dir, name string) (*Entry, error) {
	entry := New(dir, name)

	raw, err := os.ReadFile(entry.path())
	if err != nil {
		if os.IsNotExist(err) {
			return entry, nil
		}
		return nil, errors.Wrap(err, "unable to read cache entry")
	}

	if err := entry.decode(raw); err != nil {
		// A malformed or outdated cache entry is a cache miss, not a fatal
		// error: fall back to an empty entry and force a rebuild.
		return New(dir, name), nil
	}
	entry.Empty = false
	entry.NeedsCompile = false
	return entry, nil
}

// Save serializes and atomically persists the entry (spec section 4.5).
func (e *Entry) Save() error {
	data := e.encode()
	if err := filesystem.WriteFileAtomic(e.path(), data, 0o644); err != nil {
		return errors.Wrap(err, "unable to write cache entry")
	}
	return nil
}
