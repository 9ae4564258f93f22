package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var levelColors = map[LogLevel]string{
	DEBUG: "\033[34m",
	WARN:  "\033[33m",
	ERROR: "\033[31m",
}

const (
	colorDim   = "\033[90m"
	colorReset = "\033[0m"
)

// ConsoleLogger writes one line per entry in the form
//
//	2024-01-02 15:04:05 WARN  [1a2b3c4d] Listing directives failed pool=hot error="exit status 1"
//
// to stderr unless another writer is configured.
type ConsoleLogger struct {
	out     *consoleOutput
	traceID string
}

// consoleOutput is shared by a logger and its traced copies
type consoleOutput struct {
	mu     sync.Mutex
	w      io.Writer
	level  LogLevel
	color  bool
	stamp  bool
	redact bool
}

type ConsoleLoggerConfig struct {
	Writer           io.Writer
	Level            LogLevel
	ColorEnabled     bool
	TimestampEnabled bool
	RedactSensitive  bool
}

func NewConsoleLogger(config ConsoleLoggerConfig) *ConsoleLogger {
	w := config.Writer
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleLogger{out: &consoleOutput{
		w:      w,
		level:  config.Level,
		color:  config.ColorEnabled,
		stamp:  config.TimestampEnabled,
		redact: config.RedactSensitive,
	}}
}

// secretPatterns rewrite credentials that can show up in HDFS error
// messages, WebHDFS URLs and OAuth2 failures
var secretPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-._~+/]+=*`), "Bearer [REDACTED]"},
	{regexp.MustCompile(`(delegation|access_token)=[^&\s"']+`), "$1=[REDACTED]"},
	{regexp.MustCompile(`(?i)(client[_-]?secret)["']?\s*[:=]\s*["']?[^\s"'&]+`), "$1=[REDACTED]"},
	{regexp.MustCompile(`(?i)authorization["']?\s*[:=]\s*["']?[^\s"']+`), "Authorization: [REDACTED]"},
}

func redactSensitiveData(s string) string {
	for _, p := range secretPatterns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	return s
}

// fieldValue renders v for a key=value pair, quoting values with spaces
func fieldValue(v interface{}) string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case error:
		s = t.Error()
	case time.Duration:
		s = t.String()
	default:
		s = fmt.Sprint(v)
	}
	if s == "" || strings.ContainsAny(s, " \t\"=") {
		return strconv.Quote(s)
	}
	return s
}

func (o *consoleOutput) format(level LogLevel, traceID, msg string, fields []Field) string {
	var sb strings.Builder
	paint := func(color, text string) {
		if o.color && color != "" {
			sb.WriteString(color + text + colorReset)
			return
		}
		sb.WriteString(text)
	}

	if o.stamp {
		paint(colorDim, time.Now().Format("2006-01-02 15:04:05"))
		sb.WriteByte(' ')
	}
	paint(levelColors[level], fmt.Sprintf("%-5s", level))
	sb.WriteByte(' ')
	if traceID != "" {
		if len(traceID) > 8 {
			traceID = traceID[:8]
		}
		paint(colorDim, "["+traceID+"]")
		sb.WriteByte(' ')
	}

	sb.WriteString(msg)
	for _, f := range fields {
		sb.WriteByte(' ')
		sb.WriteString(f.Key)
		sb.WriteByte('=')
		sb.WriteString(fieldValue(f.Value))
	}

	line := sb.String()
	if o.redact {
		line = redactSensitiveData(line)
	}
	return line
}

func (l *ConsoleLogger) log(level LogLevel, msg string, fields []Field) {
	o := l.out
	o.mu.Lock()
	defer o.mu.Unlock()
	if level < o.level {
		return
	}
	_, _ = fmt.Fprintln(o.w, o.format(level, l.traceID, msg, fields))
}

func (l *ConsoleLogger) Debug(msg string, fields ...Field) { l.log(DEBUG, msg, fields) }
func (l *ConsoleLogger) Info(msg string, fields ...Field)  { l.log(INFO, msg, fields) }
func (l *ConsoleLogger) Warn(msg string, fields ...Field)  { l.log(WARN, msg, fields) }
func (l *ConsoleLogger) Error(msg string, fields ...Field) { l.log(ERROR, msg, fields) }

// WithTraceID returns a logger sharing l's writer and level
func (l *ConsoleLogger) WithTraceID(traceID string) Logger {
	return &ConsoleLogger{out: l.out, traceID: traceID}
}

func (l *ConsoleLogger) WithContext(ctx context.Context) Logger {
	if id := TraceIDFromContext(ctx); id != "" {
		return l.WithTraceID(id)
	}
	return l
}

// SetLevel changes the level of l and every traced copy of it
func (l *ConsoleLogger) SetLevel(level LogLevel) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.level = level
}

// Close is a no-op; the writer is not owned by the logger
func (l *ConsoleLogger) Close() error {
	return nil
}
