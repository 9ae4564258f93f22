package logging

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestConsoleLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(ConsoleLoggerConfig{Writer: &buf, Level: INFO})

	logger.Warn("Directive not found in files", F("path", "/data/a"), F("pool", "hot"))

	got := strings.TrimSpace(buf.String())
	want := "WARN  Directive not found in files path=/data/a pool=hot"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestConsoleLogger_FieldValues(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"plain", "hot", "k=hot"},
		{"spaces quoted", "exit status 1", `k="exit status 1"`},
		{"empty quoted", "", `k=""`},
		{"error", errors.New("no such file"), `k="no such file"`},
		{"number", 42, "k=42"},
		{"duration", 1500 * time.Millisecond, "k=1.5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewConsoleLogger(ConsoleLoggerConfig{Writer: &buf, Level: DEBUG})
			logger.Info("m", F("k", tt.value))
			if got := strings.TrimSpace(buf.String()); got != "INFO  m "+tt.want {
				t.Errorf("got %q, want %q", got, "INFO  m "+tt.want)
			}
		})
	}
}

func TestConsoleLogger_TracedCopySharesLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(ConsoleLoggerConfig{Writer: &buf, Level: INFO})
	traced := logger.WithTraceID("run-1")

	logger.SetLevel(ERROR)
	traced.Warn("dropped")
	if buf.Len() != 0 {
		t.Errorf("traced copy ignored SetLevel: %q", buf.String())
	}
}

func TestConsoleLogger_RedactsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(ConsoleLoggerConfig{Writer: &buf, Level: INFO, RedactSensitive: true})

	logger.Error("WebHDFS call failed", F("url", "http://nn:9870/webhdfs/v1/a?op=LISTSTATUS&delegation=HAAFaGRmcw"))

	if strings.Contains(buf.String(), "HAAFaGRmcw") {
		t.Errorf("delegation token leaked: %q", buf.String())
	}
}

func TestConsoleLogger_Color(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(ConsoleLoggerConfig{Writer: &buf, Level: INFO, ColorEnabled: true})

	logger.Error("boom")
	logger.Info("fine")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if !strings.HasPrefix(lines[0], levelColors[ERROR]) {
		t.Errorf("error line not coloured: %q", lines[0])
	}
	if strings.Contains(lines[1], "\033[") {
		t.Errorf("info line coloured: %q", lines[1])
	}
}

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(ConsoleLoggerConfig{Writer: &buf, Level: WARN})

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Error("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("filtered levels leaked: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("error line missing: %q", buf.String())
	}
}

func TestConsoleLogger_ShortTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(ConsoleLoggerConfig{Writer: &buf, Level: INFO})

	logger.WithTraceID("abc").Info("hello")

	if !strings.Contains(buf.String(), "[abc] hello") {
		t.Errorf("trace prefix missing: %q", buf.String())
	}
}

func TestRedactSensitiveData(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		avoid string
	}{
		{"bearer", "Authorization: Bearer abc.def-ghi", "abc.def-ghi"},
		{"delegation", "GET /webhdfs/v1/a?op=LISTSTATUS&delegation=HAAFaGRmcw&user.name=x", "HAAFaGRmcw"},
		{"client secret", "client_secret=s3cr3t", "s3cr3t"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redactSensitiveData(tt.in)
			if strings.Contains(got, tt.avoid) {
				t.Errorf("redactSensitiveData(%q) = %q, still contains %q", tt.in, got, tt.avoid)
			}
		})
	}
}

func TestDebugTransport_LogsWithoutQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	logger := NewConsoleLogger(ConsoleLoggerConfig{Writer: &buf, Level: DEBUG})
	client := &http.Client{Transport: NewDebugTransport(nil, logger)}

	ctx := ContextWithTraceID(context.Background(), "trace-0001")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/webhdfs/v1/a?delegation=secret", nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()

	out := buf.String()
	if strings.Contains(out, "secret") {
		t.Errorf("query string leaked into log: %q", out)
	}
	if !strings.Contains(out, "status=204") {
		t.Errorf("status missing from log: %q", out)
	}
	if !strings.Contains(out, "[trace-00]") {
		t.Errorf("trace ID missing from log: %q", out)
	}
}
