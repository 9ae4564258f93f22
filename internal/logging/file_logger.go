package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// rotatedSuffix is appended to the log path when the file is rotated
const rotatedSuffix = "20060102T150405.000000000"

// FileLogger appends one JSON LogEntry per line. rcache runs from cron, so
// the file is rotated by size and only MaxBackups rotated files are kept.
type FileLogger struct {
	file    *logFile
	level   *levelVar
	traceID string
}

type FileLoggerConfig struct {
	FilePath string
	Level    LogLevel
	// MaxFileSize in bytes; 0 disables rotation
	MaxFileSize int64
	// MaxBackups is the number of rotated files kept; 0 keeps all
	MaxBackups int
}

// levelVar is shared by a FileLogger and its traced copies
type levelVar struct {
	mu sync.Mutex
	v  LogLevel
}

func (l *levelVar) get() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.v
}

func (l *levelVar) set(v LogLevel) {
	l.mu.Lock()
	l.v = v
	l.mu.Unlock()
}

type logFile struct {
	mu         sync.Mutex
	f          *os.File
	path       string
	size       int64
	maxSize    int64
	maxBackups int
}

func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	lf := &logFile{
		path:       config.FilePath,
		maxSize:    config.MaxFileSize,
		maxBackups: config.MaxBackups,
	}
	if err := lf.open(); err != nil {
		return nil, err
	}
	return &FileLogger{file: lf, level: &levelVar{v: config.Level}}, nil
}

func (lf *logFile) open() error {
	f, err := os.OpenFile(lf.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("opening log file: %w", err)
	}
	lf.f = f
	lf.size = info.Size()
	return nil
}

func (lf *logFile) write(line []byte) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	if lf.f == nil {
		return
	}
	if lf.maxSize > 0 && lf.size > 0 && lf.size+int64(len(line)) > lf.maxSize {
		if err := lf.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "rcache: rotating %s: %v\n", lf.path, err)
			if lf.f == nil {
				return
			}
		}
	}
	n, err := lf.f.Write(line)
	lf.size += int64(n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rcache: writing %s: %v\n", lf.path, err)
	}
}

// rotate moves the current file aside, reopens the path and prunes old
// rotated files
func (lf *logFile) rotate() error {
	if err := lf.f.Close(); err != nil {
		return err
	}
	lf.f = nil
	rotated := lf.path + "." + time.Now().UTC().Format(rotatedSuffix)
	renameErr := os.Rename(lf.path, rotated)
	if err := lf.open(); err != nil {
		return err
	}
	if renameErr != nil {
		return renameErr
	}
	return lf.prune()
}

func (lf *logFile) prune() error {
	if lf.maxBackups <= 0 {
		return nil
	}
	matches, err := filepath.Glob(lf.path + ".*")
	if err != nil {
		return err
	}
	if len(matches) <= lf.maxBackups {
		return nil
	}
	// the timestamp suffix sorts chronologically
	sort.Strings(matches)
	for _, old := range matches[:len(matches)-lf.maxBackups] {
		if err := os.Remove(old); err != nil {
			return err
		}
	}
	return nil
}

func (l *FileLogger) log(level LogLevel, msg string, fields []Field) {
	if level < l.level.get() {
		return
	}
	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Message:   msg,
		TraceID:   l.traceID,
	}
	if len(fields) > 0 {
		entry.Fields = make(map[string]interface{}, len(fields))
		for _, f := range fields {
			if err, ok := f.Value.(error); ok {
				entry.Fields[f.Key] = err.Error()
				continue
			}
			entry.Fields[f.Key] = f.Value
		}
	}
	line, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rcache: encoding log entry %q: %v\n", msg, err)
		return
	}
	l.file.write(append(line, '\n'))
}

func (l *FileLogger) Debug(msg string, fields ...Field) { l.log(DEBUG, msg, fields) }
func (l *FileLogger) Info(msg string, fields ...Field)  { l.log(INFO, msg, fields) }
func (l *FileLogger) Warn(msg string, fields ...Field)  { l.log(WARN, msg, fields) }
func (l *FileLogger) Error(msg string, fields ...Field) { l.log(ERROR, msg, fields) }

func (l *FileLogger) WithTraceID(traceID string) Logger {
	return &FileLogger{file: l.file, level: l.level, traceID: traceID}
}

func (l *FileLogger) WithContext(ctx context.Context) Logger {
	if id := TraceIDFromContext(ctx); id != "" {
		return l.WithTraceID(id)
	}
	return l
}

func (l *FileLogger) SetLevel(level LogLevel) {
	l.level.set(level)
}

// Close closes the file for l and all traced copies; later entries are
// dropped
func (l *FileLogger) Close() error {
	l.file.mu.Lock()
	defer l.file.mu.Unlock()
	if l.file.f == nil {
		return nil
	}
	err := l.file.f.Close()
	l.file.f = nil
	return err
}
