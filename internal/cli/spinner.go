package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinner animates a status line while a long operation runs. Nothing is
// drawn unless the output is a terminal.
type spinner struct {
	w        io.Writer
	message  string
	tty      bool
	interval time.Duration

	halt    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newSpinner(message string) *spinner {
	return &spinner{
		w:        os.Stderr,
		message:  message,
		tty:      isatty.IsTerminal(os.Stderr.Fd()),
		interval: 80 * time.Millisecond,
		halt:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// start draws frames until stop is called or ctx is done.
func (s *spinner) start(ctx context.Context) {
	go func() {
		defer close(s.stopped)
		if !s.tty {
			select {
			case <-ctx.Done():
			case <-s.halt:
			}
			return
		}
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-ctx.Done():
				return
			case <-s.halt:
				return
			case <-ticker.C:
				frame := spinnerFrames[i%len(spinnerFrames)]
				fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.message))
			}
		}
	}()
}

// stop halts the animation and clears the line. It may be called more than
// once.
func (s *spinner) stop() {
	s.once.Do(func() {
		close(s.halt)
		<-s.stopped
		if s.tty {
			fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
		}
	})
}

// withSpinner runs fn while a spinner shows message.
func withSpinner[T any](ctx context.Context, message string, fn func() (T, error)) (T, error) {
	s := newSpinner(message)
	s.start(ctx)
	defer s.stop()
	return fn()
}
