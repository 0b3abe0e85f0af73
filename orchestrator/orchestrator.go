// Package orchestrator implements the state machine of spec section 4.6:
// rotate prior preprocessor output, invoke the preprocessor, fingerprint it,
// decide whether to recompile, invoke the compiler if needed, and persist
// the updated entry.
package orchestrator

import (
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/kbuild-go/kobjcache/cacheentry"
	"github.com/kbuild-go/kobjcache/checksum"
	"github.com/kbuild-go/kobjcache/filesystem"
	"github.com/kbuild-go/kobjcache/pathutil"
	"github.com/kbuild-go/kobjcache/process"
)

// oldSuffix is the rotation suffix applied to the prior preprocessor output
// file (spec section 4.6, step R; spec glossary, "Rotation").
const oldSuffix = "-old"

// Config carries everything about this invocation that the driver parsed
// from the command line (spec section 4.7), expressed in terms the
// orchestrator needs rather than raw argv.
type Config struct {
	// PreprocessorArgv is the full argument vector to invoke for stage 1.
	PreprocessorArgv []string
	// PreprocessorOutputName is the caller-supplied name for the
	// preprocessor's output, absolute or relative to the current directory
	// (not necessarily to the cache directory).
	PreprocessorOutputName string
	// RedirectStdout is true when the preprocessor's stdout (rather than the
	// preprocessor itself) should be captured to PreprocessorOutputName.
	RedirectStdout bool

	// CompilerArgv is the full argument vector to invoke for stage 2.
	CompilerArgv []string
	// ObjectName is the caller-supplied name for the compiler's output
	// object, absolute or relative to the current directory.
	ObjectName string
}

// Logger receives verbosity-gated progress messages and is implemented by
// the driver's cmd package; kept as an interface here so orchestrator has no
// dependency on terminal/color handling.
type Logger interface {
	Infof(format string, args ...interface{})
}

// nopLogger discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{}) {}

// Run drives entry through steps R, P, D, C, B, W. On success, entry has
// been mutated to reflect the new state and persisted to disk. Any I/O or
// subprocess failure is returned as an error for the caller to treat as
// fatal (spec section 7); a decision failure never occurs; it only produces
// entry.NeedsCompile = true.
func Run(entry *cacheentry.Entry, cfg Config, runner *process.Runner, log Logger) error {
	if log == nil {
		log = nopLogger{}
	}

	if err := rotate(entry, log); err != nil {
		return errors.Wrap(err, "rotate")
	}

	if err := preprocess(entry, cfg, runner, log); err != nil {
		return errors.Wrap(err, "preprocess")
	}

	if err := decide(entry, cfg, log); err != nil {
		return errors.Wrap(err, "decide")
	}

	cleanupRotated(entry, log)

	if err := build(entry, cfg, runner, log); err != nil {
		return errors.Wrap(err, "build")
	}

	entry.ReleaseBuffers()

	if err := entry.Save(); err != nil {
		return errors.Wrap(err, "persist")
	}
	log.Infof("%s up to date (object %s)", entry.Name, entry.ObjectPath)

	return nil
}

// rotate implements step R: rename the prior preprocessor output file, if
// any, to its "-old" staging name, unlinking any stale staging file first.
func rotate(entry *cacheentry.Entry, log Logger) error {
	if entry.PreprocessorOutputPath == "" {
		return nil
	}
	if !filesystem.ExistsAsRegularFile(entry.PreprocessorOutputPath, entry.Dir) {
		return nil
	}

	oldName := entry.PreprocessorOutputPath + oldSuffix
	if err := filesystem.Unlink(oldName, entry.Dir); err != nil {
		return err
	}
	if err := filesystem.Rename(entry.PreprocessorOutputPath, oldName, entry.Dir); err != nil {
		return err
	}
	entry.OldPreprocessorOutputPath = oldName
	log.Infof("rotated %s -> %s", entry.PreprocessorOutputPath, oldName)
	return nil
}

// preprocess implements step P: invoke the preprocessor, then read and
// fingerprint its output.
func preprocess(entry *cacheentry.Entry, cfg Config, runner *process.Runner, log Logger) error {
	newRel, err := pathutil.MakeRelative(pathutil.Canonicalize(cfg.PreprocessorOutputName), entry.Dir)
	if err != nil {
		return errors.Wrap(err, "unable to express preprocessor output relative to cache directory")
	}

	redirectName := ""
	if cfg.RedirectStdout {
		redirectName = newRel
	}
	if err := runner.Run(cfg.PreprocessorArgv, "preprocess", redirectName, entry.Dir); err != nil {
		return err
	}

	buf, err := filesystem.ReadWholeFile(newRel, entry.Dir)
	if err != nil {
		return errors.Wrap(err, "unable to read preprocessor output")
	}

	entry.NewPreprocessorOutputPath = newRel
	entry.NewPreprocessorBuffer = buf
	entry.NewFingerprint = checksum.Compute(buf)
	log.Infof("preprocessed %s (%s)", newRel, humanize.Bytes(uint64(len(buf))))

	return nil
}

// decide implements step D, short-circuiting on the first check that sets
// NeedsCompile.
func decide(entry *cacheentry.Entry, cfg Config, log Logger) error {
	newObjRel, err := pathutil.MakeRelative(pathutil.Canonicalize(cfg.ObjectName), entry.Dir)
	if err != nil {
		return errors.Wrap(err, "unable to express object path relative to cache directory")
	}
	entry.NewObjectPath = newObjRel

	if entry.Empty {
		entry.NeedsCompile = true
		log.Infof("no prior cache entry, compiling")
		return nil
	}

	if newObjRel != entry.ObjectPath {
		entry.NeedsCompile = true
		log.Infof("object path changed (%s -> %s), compiling", entry.ObjectPath, newObjRel)
		return nil
	}

	if argvDiffers(cfg.CompilerArgv, entry.CompileArgv) {
		entry.NeedsCompile = true
		log.Infof("compile arguments changed, compiling")
		return nil
	}

	if !filesystem.ExistsAsRegularFile(entry.ObjectPath, entry.Dir) {
		entry.NeedsCompile = true
		log.Infof("object file missing, compiling")
		return nil
	}

	if entry.Accepted.Contains(entry.NewFingerprint) {
		log.Infof("fingerprint match, reusing cached object")
		return nil
	}

	if entry.OldPreprocessorOutputPath != "" && filesystem.ExistsAsRegularFile(entry.OldPreprocessorOutputPath, entry.Dir) {
		oldBuf, err := filesystem.ReadWholeFile(entry.OldPreprocessorOutputPath, entry.Dir)
		if err != nil {
			return errors.Wrap(err, "unable to read rotated preprocessor output")
		}
		entry.OldPreprocessorBuffer = oldBuf

		if structurallyEquivalent(oldBuf, entry.NewPreprocessorBuffer) {
			entry.Accepted.Add(entry.NewFingerprint)
			log.Infof("preprocessor output changed but is structurally equivalent, reusing cached object")
			return nil
		}
	}

	entry.NeedsCompile = true
	log.Infof("fingerprint mismatch, compiling")
	return nil
}

// argvDiffers reports whether a and b differ in length or in any element,
// compared by exact bytes (spec section 4.6, step D.3).
func argvDiffers(a, b []string) bool {
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if a[i] != b[i] {
			return true
		}
	}
	return false
}

// cleanupRotated implements step C: regardless of the decision, the rotated
// "-old" file is no longer needed once decide has run.
func cleanupRotated(entry *cacheentry.Entry, log Logger) {
	if entry.OldPreprocessorOutputPath == "" {
		return
	}
	if err := filesystem.Unlink(entry.OldPreprocessorOutputPath, entry.Dir); err != nil {
		log.Infof("warning: unable to remove rotated preprocessor output: %v", err)
	}
	entry.OldPreprocessorOutputPath = ""
}

// build implements step B: if needed, unlink the stale object, release the
// preprocessor-text buffers, invoke the compiler, and install the new
// fingerprint as the accepted set's sole member.
func build(entry *cacheentry.Entry, cfg Config, runner *process.Runner, log Logger) error {
	entry.PreprocessorOutputPath = entry.NewPreprocessorOutputPath

	if !entry.NeedsCompile {
		return nil
	}

	if entry.ObjectPath != "" {
		if err := filesystem.Unlink(entry.ObjectPath, entry.Dir); err != nil {
			return err
		}
	}

	entry.ReleaseBuffers()

	entry.ObjectPath = entry.NewObjectPath
	entry.CompileArgv = cfg.CompilerArgv

	if err := runner.Run(cfg.CompilerArgv, "compile", "", entry.Dir); err != nil {
		return err
	}

	entry.Accepted.Reset(entry.NewFingerprint)
	entry.Empty = false
	log.Infof("compiled %s", entry.ObjectPath)

	return nil
}
