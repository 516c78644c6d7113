// Package poetry runs the Poetry executable.
//
// All package manager invocations go through a [Runner], so workflows can be
// tested with a fake that records commands instead of spawning processes.
// [ExecRunner] is the real implementation: it starts the executable directly
// (no shell), with inherited standard streams, and blocks until it exits.
package poetry

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/monopy/pkg/errors"
)

// DefaultExecutable is the Poetry executable looked up on PATH.
const DefaultExecutable = "poetry"

// Command is one Poetry invocation.
type Command struct {
	// Args are passed to the executable as-is.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env is the complete process environment in "KEY=value" form.
	// Nil inherits the environment of the current process.
	Env []string
}

// String returns the command line without the executable.
func (c Command) String() string { return strings.Join(c.Args, " ") }

// Runner runs Poetry commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	// Executable defaults to DefaultExecutable.
	Executable string

	Logger *log.Logger

	// Stdout and Stderr default to the streams of the current process.
	Stdout io.Writer
	Stderr io.Writer
}

// CheckExecutable reports an [errors.ErrCodeToolMissing] error when the
// executable is not on PATH.
func (r *ExecRunner) CheckExecutable() error {
	if _, err := exec.LookPath(r.executable()); err != nil {
		return errors.Wrap(errors.ErrCodeToolMissing, err,
			"%s is not installed; see https://python-poetry.org/docs/#installation", r.executable())
	}
	return nil
}

// Run starts the executable and waits for it. A non-zero exit is reported as
// an [errors.SubprocessError].
func (r *ExecRunner) Run(ctx context.Context, c Command) error {
	logger := r.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Info("running", "cmd", r.executable()+" "+c.String(), "dir", c.Dir)

	cmd := exec.CommandContext(ctx, r.executable(), c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdin = os.Stdin
	cmd.Stdout = orDefault(r.Stdout, os.Stdout)
	cmd.Stderr = orDefault(r.Stderr, os.Stderr)

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		return &errors.SubprocessError{Command: r.executable() + " " + c.String(), ExitCode: exitErr.ExitCode(), Err: err}
	}
	if stderrors.Is(err, exec.ErrNotFound) {
		return errors.Wrap(errors.ErrCodeToolMissing, err, "%s is not installed", r.executable())
	}
	return errors.Wrap(errors.ErrCodeSubprocess, err, "start %s", r.executable())
}

func (r *ExecRunner) executable() string {
	if r.Executable != "" {
		return r.Executable
	}
	return DefaultExecutable
}

func orDefault(w io.Writer, def io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return def
}
