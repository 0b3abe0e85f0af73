// Package process implements the process runner of spec section 4.3: a
// single synchronous spawn-and-wait operation over an argument vector, with
// optional stdout redirection and strict exit-code checking. Grounded on the
// subprocess-invocation idiom the teacher uses in agent/local.go (os/exec
// plus github.com/pkg/errors wrapping).
package process

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/pkg/errors"

	"github.com/kbuild-go/kobjcache/filesystem"
)

// Error reports that a subprocess could not be started or waited on at all
// (as opposed to running and exiting non-zero). It corresponds to spec
// section 7's SpawnFailure/ChildFailure-via-spawn-failure taxonomy.
type Error struct {
	Label string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Label, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitError reports that a subprocess ran to completion but exited with a
// non-zero status, or was terminated abnormally. It corresponds to spec
// section 7's ChildFailure.
type ExitError struct {
	Label string
	Code  int
}

func (e *ExitError) Error() string {
	if e.Code < 0 {
		return fmt.Sprintf("%s terminated abnormally", e.Label)
	}
	return fmt.Sprintf("%s exited with status %d", e.Label, e.Code)
}

// Runner spawns subprocesses on behalf of the orchestrator.
type Runner struct{}

// NewRunner constructs a Runner. It carries no state today, but is a value
// (rather than a package-level function) so that a future caller can thread
// per-invocation options (e.g. an explicit environment) without changing
// every call site.
func NewRunner() *Runner {
	return &Runner{}
}

// Run blocks until argv's process exits, checking its exit code strictly.
//
// If stdoutRedirectName is non-empty, the child's standard output is
// directed to a newly created/truncated file by that name inside dir
// (spec section 4.3); otherwise the child inherits this process's standard
// output, on the assumption that it writes its own output file directly
// (spec section 4.6, step P).
//
// Spawn failure, wait failure, or a non-zero/abnormal exit all produce an
// error — never a panic or process exit — so that the caller (the
// orchestrator, or ultimately the driver) can apply spec section 7's fatal
// handling uniformly across every failure class.
//
// Go's standard (*exec.Cmd).Wait already retries internally when the
// underlying wait4 syscall is interrupted, satisfying spec section 4.3's
// EINTR-retry requirement without a manual loop.
func (r *Runner) Run(argv []string, label, stdoutRedirectName, dir string) error {
	if len(argv) == 0 {
		return &Error{Label: label, Err: errors.New("empty argument vector")}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stderr = os.Stderr

	if stdoutRedirectName != "" {
		out, err := filesystem.CreateTruncate(stdoutRedirectName, dir)
		if err != nil {
			return &Error{Label: label, Err: errors.Wrap(err, "unable to open stdout redirect file")}
		}
		defer out.Close()
		cmd.Stdout = out
	} else {
		cmd.Stdout = os.Stdout
	}

	err := cmd.Run()
	if err == nil {
		return nil
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		code := exitErr.ExitCode()
		return &ExitError{Label: label, Code: code}
	}

	return &Error{Label: label, Err: errors.Wrap(err, "unable to run process")}
}
