package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func newTestLogger(level Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(level)
	l.SetOutput(&buf)
	l.sink.now = func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) }
	return l, &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{" error ", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			if got := ParseLevel(tc.input); got != tc.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tc.input, got, tc.expected)
			}
		})
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	l, buf := newTestLogger(LevelWarn)

	l.Info("hidden %d", 1)
	l.Warn("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered: %q", out)
	}
	if !strings.Contains(out, "12:00:00.000 [WARN] shown 2") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestLogger_Named(t *testing.T) {
	l, buf := newTestLogger(LevelDebug)

	child := l.Named("timescale").Named("ut1")
	child.Debug("lookup")

	if !strings.Contains(buf.String(), "[DEBUG] timescale.ut1: lookup") {
		t.Errorf("unexpected output: %q", buf.String())
	}

	// Level changes on the parent apply to children.
	l.SetLevel(LevelError)
	buf.Reset()
	child.Warn("suppressed")
	if buf.Len() != 0 {
		t.Errorf("child should share the parent level, got %q", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("nothing")
	OrDiscard(nil).Info("nothing")
}
