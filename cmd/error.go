// Package cmd provides the diagnostic output shared by the kObjCache driver:
// fixed-prefix, verbosity-gated, color-when-a-terminal messages, matching
// the original tool's own "kObjCache <entry> - info:"/"fatal error:"
// prefixing convention.
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	isatty "github.com/mattn/go-isatty"
)

// Verbose controls whether Infof actually emits anything. The driver sets
// this from -v/--verbose and -q/--quiet before running the orchestrator.
var Verbose bool

// colorsEnabled reports whether the given stream is a real terminal, so
// redirected output (e.g. to a build log) never carries escape codes.
func colorsEnabled(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// prefix builds the fixed message prefix. An empty entry name yields the
// bare "kObjCache:" form used for syntax errors that occur before any entry
// has been identified.
func prefix(entry string) string {
	if entry == "" {
		return "kObjCache:"
	}
	return fmt.Sprintf("kObjCache %s -", entry)
}

func emit(out *os.File, line string, colorize func(string, ...interface{}) string) {
	if colorsEnabled(out.Fd()) {
		line = colorize(line)
	}
	fmt.Fprintln(out, line)
}

// Infof prints a verbosity-gated progress message scoped to entry, to
// standard output, per spec section 7.
func Infof(entry, format string, args ...interface{}) {
	if !Verbose {
		return
	}
	line := fmt.Sprintf("%s info: %s", prefix(entry), fmt.Sprintf(format, args...))
	emit(os.Stdout, line, color.CyanString)
}

// Warningf prints a non-fatal warning scoped to entry, to standard error.
// Unlike Infof, it is not gated by Verbose: warnings are surfaced
// regardless.
func Warningf(entry, format string, args ...interface{}) {
	line := fmt.Sprintf("%s warning: %s", prefix(entry), fmt.Sprintf(format, args...))
	emit(os.Stderr, line, color.YellowString)
}

// FatalEntry reports an entry-scoped fatal error to standard error and
// terminates the process with exit status 1 (spec section 7's fatal-error
// class).
func FatalEntry(entry string, err error) {
	line := fmt.Sprintf("%s fatal error: %v", prefix(entry), err)
	emit(os.Stderr, line, color.RedString)
	os.Exit(1)
}

// SyntaxError reports a command-line parsing failure, which by definition
// precedes any identified cache entry, to standard error, and terminates
// the process with exit status 1 (spec section 7's Syntax class).
func SyntaxError(err error) {
	line := fmt.Sprintf("kObjCache: syntax error: %v", err)
	emit(os.Stderr, line, color.RedString)
	os.Exit(1)
}
