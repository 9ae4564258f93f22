package logging

import (
	"path/filepath"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		config  func(dir string) LogConfig
		wantTyp string
	}{
		{
			name:    "nothing enabled",
			config:  func(string) LogConfig { return LogConfig{Level: INFO} },
			wantTyp: "*logging.NoOpLogger",
		},
		{
			name:    "console",
			config:  func(string) LogConfig { return LogConfig{Level: WARN, EnableConsole: true} },
			wantTyp: "*logging.ConsoleLogger",
		},
		{
			name: "file",
			config: func(dir string) LogConfig {
				return LogConfig{Level: INFO, OutputFile: filepath.Join(dir, "rcache.log")}
			},
			wantTyp: "*logging.FileLogger",
		},
		{
			name: "console and file",
			config: func(dir string) LogConfig {
				return LogConfig{Level: INFO, EnableConsole: true, OutputFile: filepath.Join(dir, "rcache.log")}
			},
			wantTyp: "*logging.MultiLogger",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.config(t.TempDir()))
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}
			t.Cleanup(func() { _ = logger.Close() })
			if got := typeName(logger); got != tt.wantTyp {
				t.Errorf("NewLogger() = %s, want %s", got, tt.wantTyp)
			}
		})
	}
}

func TestNewLogger_DebugOverridesLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rcache.log")
	logger, err := NewLogger(LogConfig{Level: ERROR, EnableDebug: true, OutputFile: path})
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("HTTP request")
	_ = logger.Close()

	if got := len(readEntries(t, path)); got != 1 {
		t.Errorf("debug entry not written with EnableDebug (got %d entries)", got)
	}
}

func TestNewLogger_BadFilePath(t *testing.T) {
	dir := t.TempDir()
	// a directory cannot be opened as the log file
	if _, err := NewLogger(LogConfig{OutputFile: dir}); err == nil {
		t.Error("NewLogger() with a directory as log file should fail")
	}
}

func TestNewDebugLoggerWithTransport(t *testing.T) {
	_, transport, err := NewDebugLoggerWithTransport(LogConfig{Level: INFO})
	if err != nil {
		t.Fatal(err)
	}
	if transport != nil {
		t.Error("transport should be nil without EnableDebug")
	}

	logger, transport, err := NewDebugLoggerWithTransport(LogConfig{EnableDebug: true})
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()
	if transport == nil {
		t.Error("transport should be set with EnableDebug")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", DEBUG, false},
		{"verbose", INFO, false},
		{"normal", INFO, false},
		{"", INFO, false},
		{"Warning", WARN, false},
		{"quiet", ERROR, false},
		{"loud", INFO, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case *NoOpLogger:
		return "*logging.NoOpLogger"
	case *ConsoleLogger:
		return "*logging.ConsoleLogger"
	case *FileLogger:
		return "*logging.FileLogger"
	case *MultiLogger:
		return "*logging.MultiLogger"
	}
	return "unknown"
}
