package cli

import (
	"context"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates the CLI logger. Timestamps look like "14:32:01.45".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs the completion of a long operation with its elapsed time.
type progress struct {
	logger  *log.Logger
	start   time.Time
	keyvals []any
}

// newProgress starts timing an operation. keyvals are attached to the
// completion record.
func newProgress(l *log.Logger, keyvals ...any) *progress {
	return &progress{logger: l, start: time.Now(), keyvals: keyvals}
}

// done logs msg with the attached key-values and the elapsed time, e.g.
//
//	14:32:01.45 INFO shared environment synced projects=12 elapsed=1.234s
func (p *progress) done(msg string) {
	elapsed := time.Since(p.start).Round(time.Millisecond)
	p.logger.Info(msg, append(slices.Clone(p.keyvals), "elapsed", elapsed)...)
}

type loggerKey struct{}

// withLogger attaches l to ctx.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the logger attached to ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
