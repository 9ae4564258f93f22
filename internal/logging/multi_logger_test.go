package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

// recordingLogger keeps every call for inspection
type recordingLogger struct {
	lines    []string
	traceID  string
	level    LogLevel
	closeErr error
	closed   bool
}

func (r *recordingLogger) add(level LogLevel, msg string) {
	if level >= r.level {
		r.lines = append(r.lines, level.String()+" "+r.traceID+" "+msg)
	}
}

func (r *recordingLogger) Debug(msg string, _ ...Field) { r.add(DEBUG, msg) }
func (r *recordingLogger) Info(msg string, _ ...Field)  { r.add(INFO, msg) }
func (r *recordingLogger) Warn(msg string, _ ...Field)  { r.add(WARN, msg) }
func (r *recordingLogger) Error(msg string, _ ...Field) { r.add(ERROR, msg) }

func (r *recordingLogger) WithTraceID(id string) Logger {
	return &recordingLogger{traceID: id, level: r.level}
}

func (r *recordingLogger) WithContext(ctx context.Context) Logger {
	return r.WithTraceID(TraceIDFromContext(ctx))
}

func (r *recordingLogger) SetLevel(level LogLevel) { r.level = level }

func (r *recordingLogger) Close() error {
	r.closed = true
	return r.closeErr
}

func TestMultiLogger_FansOut(t *testing.T) {
	a, b := &recordingLogger{}, &recordingLogger{}
	m := NewMultiLogger(a, b)

	m.Debug("walk")
	m.Info("Submit finished")
	m.Warn("Audit history unavailable")
	m.Error("Submit aborted")

	for name, r := range map[string]*recordingLogger{"a": a, "b": b} {
		if len(r.lines) != 4 {
			t.Errorf("logger %s got %d lines, want 4: %v", name, len(r.lines), r.lines)
		}
	}
}

func TestMultiLogger_SetLevel(t *testing.T) {
	a, b := &recordingLogger{}, &recordingLogger{}
	m := NewMultiLogger(a, b)

	m.SetLevel(WARN)
	m.Info("hidden")
	m.Warn("shown")

	if len(a.lines) != 1 || len(b.lines) != 1 {
		t.Errorf("lines after SetLevel(WARN): a=%v b=%v", a.lines, b.lines)
	}
}

func TestMultiLogger_WithContext(t *testing.T) {
	m := NewMultiLogger(&recordingLogger{}, &recordingLogger{})

	if got := m.WithContext(context.Background()); got != Logger(m) {
		t.Error("WithContext without a trace ID should return the logger itself")
	}

	traced, ok := m.WithContext(ContextWithTraceID(context.Background(), "run-7")).(*MultiLogger)
	if !ok {
		t.Fatalf("WithContext() returned %T", traced)
	}
	traced.Info("Audit finished")
	for _, l := range traced.loggers {
		r := l.(*recordingLogger)
		if len(r.lines) != 1 || !strings.Contains(r.lines[0], "run-7") {
			t.Errorf("traced lines = %v", r.lines)
		}
	}
}

func TestMultiLogger_CloseReturnsFirstError(t *testing.T) {
	errA := errors.New("a failed")
	a := &recordingLogger{closeErr: errA}
	b := &recordingLogger{closeErr: errors.New("b failed")}

	if err := NewMultiLogger(a, b).Close(); !errors.Is(err, errA) {
		t.Errorf("Close() = %v, want %v", err, errA)
	}
	if !a.closed || !b.closed {
		t.Error("every logger should be closed")
	}
}

func TestMultiLogger_ConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := t.TempDir() + "/rcache.log"
	file, err := NewFileLogger(FileLoggerConfig{FilePath: path, Level: DEBUG})
	if err != nil {
		t.Fatal(err)
	}
	m := NewMultiLogger(
		NewConsoleLogger(ConsoleLoggerConfig{Writer: &console, Level: WARN}),
		file,
	)

	m.Info("Submit finished", F("created", 2))
	m.Warn("Listing directives failed", F("pool", "hot"))
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	if strings.Count(console.String(), "\n") != 1 {
		t.Errorf("console should only carry the warning: %q", console.String())
	}
	if got := len(readEntries(t, path)); got != 2 {
		t.Errorf("file has %d entries, want 2", got)
	}
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NewNoOpLogger()
	l.Info("ignored")
	if l.WithTraceID("x") != l || l.WithContext(context.Background()) != l {
		t.Error("NoOpLogger should return itself")
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
