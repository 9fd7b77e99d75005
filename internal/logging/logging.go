// Package logging provides a simple leveled logger with named components.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a log level string. Unknown values map to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// sink is shared by a logger and all of its named children.
type sink struct {
	mu     sync.Mutex
	level  Level
	output io.Writer
	now    func() time.Time
}

// Logger is a leveled logger. The zero value is not usable; use New.
type Logger struct {
	sink *sink
	name string
}

// New creates a new logger writing to stderr.
func New(level Level) *Logger {
	return &Logger{
		sink: &sink{
			level:  level,
			output: os.Stderr,
			now:    time.Now,
		},
	}
}

// Named returns a child logger that prefixes every line with the component
// name. Children share output and level with their parent.
func (l *Logger) Named(component string) *Logger {
	name := component
	if l.name != "" {
		name = l.name + "." + component
	}
	return &Logger{sink: l.sink, name: name}
}

// SetOutput sets the log output destination.
func (l *Logger) SetOutput(w io.Writer) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.output = w
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.level = level
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()

	if level < s.level {
		return
	}

	timestamp := s.now().Format("15:04:05.000")
	msg := fmt.Sprintf(format, args...)
	var line string
	if l.name != "" {
		line = fmt.Sprintf("%s [%s] %s: %s\n", timestamp, level.String(), l.name, msg)
	} else {
		line = fmt.Sprintf("%s [%s] %s\n", timestamp, level.String(), msg)
	}

	_, _ = s.output.Write([]byte(line))
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Info logs an info message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// Discard returns a logger that discards all output.
func Discard() *Logger {
	return &Logger{
		sink: &sink{
			level:  LevelError + 1, // Higher than any level
			output: io.Discard,
			now:    time.Now,
		},
	}
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *Logger) *Logger {
	if l == nil {
		return Discard()
	}
	return l
}
