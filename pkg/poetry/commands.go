package poetry

import (
	"context"

	"github.com/mattn/go-shellwords"

	"github.com/matzehuels/monopy/pkg/errors"
)

// Lock runs "poetry lock" in dir.
func Lock(ctx context.Context, r Runner, dir string, env []string) error {
	return r.Run(ctx, Command{Args: []string{"lock"}, Dir: dir, Env: env})
}

// InstallSync runs "poetry install --sync" in dir, removing packages that are
// no longer in the lock file.
func InstallSync(ctx context.Context, r Runner, dir string, env []string) error {
	return r.Run(ctx, Command{Args: []string{"install", "--sync"}, Dir: dir, Env: env})
}

// Install runs "poetry install" in dir, followed by extra arguments.
func Install(ctx context.Context, r Runner, dir string, env []string, extra ...string) error {
	return r.Run(ctx, Command{Args: append([]string{"install"}, extra...), Dir: dir, Env: env})
}

// Build runs "poetry build" in dir.
func Build(ctx context.Context, r Runner, dir string, env []string, extra ...string) error {
	return r.Run(ctx, Command{Args: append([]string{"build"}, extra...), Dir: dir, Env: env})
}

// Add runs "poetry add" for deps in dir, followed by extra arguments.
func Add(ctx context.Context, r Runner, dir string, env []string, deps []string, extra ...string) error {
	args := append(append([]string{"add"}, deps...), extra...)
	return r.Run(ctx, Command{Args: args, Dir: dir, Env: env})
}

// Remove runs "poetry remove" for deps in dir, followed by extra arguments.
func Remove(ctx context.Context, r Runner, dir string, env []string, deps []string, extra ...string) error {
	args := append(append([]string{"remove"}, deps...), extra...)
	return r.Run(ctx, Command{Args: args, Dir: dir, Env: env})
}

// Update runs "poetry update" in dir, optionally restricted to deps,
// followed by extra arguments.
func Update(ctx context.Context, r Runner, dir string, env []string, deps []string, extra ...string) error {
	args := append(append([]string{"update"}, deps...), extra...)
	return r.Run(ctx, Command{Args: args, Dir: dir, Env: env})
}

// ParseExtraArgs splits a user supplied argument string into words the way a
// POSIX shell would, without variable or command expansion. Shell operators
// such as "|" or ">" are rejected unless quoted.
//
//	ParseExtraArgs(`--group dev --extras "a b"`) // ["--group" "dev" "--extras" "a b"]
func ParseExtraArgs(s string) ([]string, error) {
	p := shellwords.NewParser()
	args, err := p.Parse(s)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse arguments %q", s)
	}
	if p.Position >= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unsupported shell operator at offset %d in %q", p.Position, s)
	}
	return args, nil
}
