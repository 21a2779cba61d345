package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLogLevel(tt.input); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestStructuredLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)
	ctx := context.Background()

	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	logger.Warn(ctx, "warn message")
	logger.Error(ctx, "error message")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "warn message") {
		t.Errorf("first line should be the warn entry, got %q", lines[0])
	}
}

func TestStructuredLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)

	logger.Info(context.Background(), "store", F("key", "list:123"), F("items", 4))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not valid JSON: %v", err)
	}
	if entry["msg"] != "store" {
		t.Errorf("msg = %v, want %q", entry["msg"], "store")
	}
	if entry["key"] != "list:123" {
		t.Errorf("key = %v, want %q", entry["key"], "list:123")
	}
	if entry["items"] != float64(4) {
		t.Errorf("items = %v, want 4", entry["items"])
	}
}

func TestStructuredLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)

	logger.Info(context.Background(), "session", F("token", "pk_secret_value"))

	out := buf.String()
	if strings.Contains(out, "pk_secret_value") {
		t.Error("token value should be redacted")
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Error("redacted marker missing")
	}
}

func TestStructuredLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf).WithComponent("hierarchy")

	logger.Info(context.Background(), "restore")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not valid JSON: %v", err)
	}
	if entry["component"] != "hierarchy" {
		t.Errorf("component = %v, want %q", entry["component"], "hierarchy")
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	ctx := context.Background()

	// Must not panic.
	logger.Debug(ctx, "a")
	logger.Info(ctx, "b", F("k", "v"))
	logger.Warn(ctx, "c")
	logger.Error(ctx, "d")
	logger.WithComponent("x").Info(ctx, "e")

	if OrNop(nil) == nil {
		t.Error("OrNop(nil) should return a usable logger")
	}
	if OrNop(logger) != logger {
		t.Error("OrNop should pass through a non-nil logger")
	}
}
