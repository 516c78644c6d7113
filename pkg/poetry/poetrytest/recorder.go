// Package poetrytest provides a recording [poetry.Runner] for tests.
package poetrytest

import (
	"context"
	"strings"
	"sync"

	"github.com/matzehuels/monopy/pkg/poetry"
)

// Recorder records commands instead of running them.
type Recorder struct {
	mu       sync.Mutex
	commands []poetry.Command

	// Fail makes Run return the mapped error for commands whose argument
	// line starts with the key, for example "lock" or "add requests".
	Fail map[string]error

	// OnRun, if set, is called for every command before it is recorded.
	// A non-nil result is returned by Run.
	OnRun func(poetry.Command) error
}

// Run implements poetry.Runner.
func (r *Recorder) Run(ctx context.Context, c poetry.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.OnRun != nil {
		if err := r.OnRun(c); err != nil {
			return err
		}
	}
	r.mu.Lock()
	r.commands = append(r.commands, c)
	r.mu.Unlock()

	line := c.String()
	for prefix, err := range r.Fail {
		if strings.HasPrefix(line, prefix) {
			return err
		}
	}
	return nil
}

// Commands returns the recorded commands in order.
func (r *Recorder) Commands() []poetry.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]poetry.Command(nil), r.commands...)
}

// Lines returns the argument line of every recorded command.
func (r *Recorder) Lines() []string {
	cmds := r.Commands()
	lines := make([]string, len(cmds))
	for i, c := range cmds {
		lines[i] = c.String()
	}
	return lines
}
