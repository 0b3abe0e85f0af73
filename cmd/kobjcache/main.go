// Command kobjcache is the driver described in spec section 4.7: it parses
// the argument vector, loads the named cache entry, runs the orchestrator,
// and persists the result.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/kbuild-go/kobjcache/cacheentry"
	"github.com/kbuild-go/kobjcache/cmd"
	"github.com/kbuild-go/kobjcache/filesystem"
	"github.com/kbuild-go/kobjcache/orchestrator"
	"github.com/kbuild-go/kobjcache/pathutil"
	"github.com/kbuild-go/kobjcache/process"
)

// lockSuffix names the advisory lock file kept alongside each cache entry,
// guarding against the concurrent-invocation hazard spec section 5 leaves as
// the caller's responsibility.
const lockSuffix = ".lock"

const version = "1.0.0"

const usage = `kObjCache is a build-time object file cache.

Usage: kObjCache -f <cache-file> [options] --kObjCache-cpp <output> <argv...> --kObjCache-cc <object> <argv...>

Options:
  -f, --file <path>        Cache-entry file (required)
  -r, --redir-stdout       Redirect the preprocessor's stdout to its output file
  -d, --chdir <dir>        Change to dir before resolving the cache-file path
  -v, --verbose            Enable progress messages
  -q, --quiet              Disable progress messages
  -V, --version            Print version and exit
  -h, --help, -?           Print this message and exit

  --kObjCache-cpp <name> <argv...>   Preprocessor section; name is its output file
  --kObjCache-cc <name> <argv...>    Compiler section; name is the object file
  --kObjCache-both <argv...>         Append subsequent tokens to both sections
`

// entryLogger adapts cmd's package-level diagnostics to orchestrator.Logger,
// binding every message to one cache entry's display name.
type entryLogger struct {
	name string
}

func (l entryLogger) Infof(format string, args ...interface{}) {
	cmd.Infof(l.name, format, args...)
}

func main() {
	args, err := parseArgs(os.Args[1:])
	if err != nil {
		cmd.SyntaxError(err)
	}

	if args.showHelp {
		fmt.Print(usage)
		os.Exit(0)
	}
	if args.showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if args.chdir != "" {
		if err := os.Chdir(args.chdir); err != nil {
			cmd.SyntaxError(errors.Wrap(err, "unable to change working directory"))
		}
	}

	if args.quiet {
		cmd.Verbose = false
	} else {
		cmd.Verbose = args.verbose
	}

	run(args)
}

// run implements the remainder of spec section 4.7: resolve the cache-file
// path into (directory, name), load the entry, run the orchestrator, and
// let FatalEntry handle any failure with the spec's prefixed diagnostics.
func run(args *parsedArgs) {
	absoluteCachePath := pathutil.Canonicalize(args.cacheFilePath)
	dir := pathutil.FindDir(absoluteCachePath)
	name := pathutil.FindLeaf(absoluteCachePath)

	locker, err := filesystem.NewLocker(filesystem.Join(dir, name+lockSuffix), 0o644)
	if err != nil {
		cmd.FatalEntry(name, err)
	}
	defer locker.Close()
	if err := locker.Lock(false); err != nil {
		cmd.FatalEntry(name, errors.Wrap(err, "unable to acquire cache-entry lock"))
	}
	defer locker.Unlock()

	entry, err := cacheentry.Load(dir, name)
	if err != nil {
		cmd.FatalEntry(name, err)
	}

	cfg := orchestrator.Config{
		PreprocessorArgv:       args.preprocessorArgv,
		PreprocessorOutputName: args.preprocessorName,
		RedirectStdout:         args.redirStdout,
		CompilerArgv:           args.compilerArgv,
		ObjectName:             args.compilerName,
	}

	runner := process.NewRunner()
	log := entryLogger{name: name}

	if err := orchestrator.Run(entry, cfg, runner, log); err != nil {
		reportRunError(name, err)
	}
}

// reportRunError distinguishes a labeled subprocess failure (spec section
// 7's SpawnFailure/ChildFailure) from any other fatal error so the
// diagnostic names the failing stage either way.
func reportRunError(entryName string, err error) {
	var exitErr *process.ExitError
	var spawnErr *process.Error
	switch {
	case errors.As(err, &exitErr):
		cmd.FatalEntry(entryName, exitErr)
	case errors.As(err, &spawnErr):
		cmd.FatalEntry(entryName, spawnErr)
	default:
		cmd.FatalEntry(entryName, err)
	}
	os.Exit(1)
}
