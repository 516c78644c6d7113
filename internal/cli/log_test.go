package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", LogInfo, func(l *log.Logger) { l.Info("folded", "project", "api") }, true},
		{"debug at info level", LogInfo, func(l *log.Logger) { l.Debug("opened workspace") }, false},
		{"debug at debug level", LogDebug, func(l *log.Logger) { l.Debug("opened workspace") }, true},
		{"warn at info level", LogInfo, func(l *log.Logger) { l.Warn("unparseable constraint") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("got log output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	c.Logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record written at info level: %q", buf.String())
	}
	c.SetLogLevel(LogDebug)
	c.Logger.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("output = %q, want debug record", buf.String())
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, LogInfo), "projects", 3)
	prog.done("shared environment synced")

	got := buf.String()
	for _, want := range []string{"shared environment synced", "projects=3", "elapsed="} {
		if !strings.Contains(got, want) {
			t.Errorf("output = %q, missing %q", got, want)
		}
	}
}

func TestProgressKeyvalsNotShared(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, LogInfo), "project", "api")
	prog.done("build finished")
	prog.done("build finished")
	if len(prog.keyvals) != 2 {
		t.Errorf("keyvals = %v, want unchanged", prog.keyvals)
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("loggerFromContext() without a logger should return log.Default()")
	}

	var buf bytes.Buffer
	l := newLogger(&buf, LogInfo)
	ctx := withLogger(context.Background(), l)
	if loggerFromContext(ctx) != l {
		t.Error("loggerFromContext() should return the attached logger")
	}
}
