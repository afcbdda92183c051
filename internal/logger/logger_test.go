package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "text", "warn")
	log.Info("hidden")
	log.Warn("shown", "component", "engine")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line leaked through warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "component=engine") {
		t.Fatalf("expected warn line with kv, got %q", out)
	}
}

func TestJSONFormatAndWith(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "json", "debug").With("user", "u1")
	log.Debug("tick", "left", 3)
	if !strings.Contains(buf.String(), `"user":"u1"`) || !strings.Contains(buf.String(), `"left":3`) {
		t.Fatalf("unexpected json output %q", buf.String())
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var log *Logger
	log.Info("nothing")
	if log.With("a", 1) != nil {
		t.Fatal("expected nil from With on nil logger")
	}
}
