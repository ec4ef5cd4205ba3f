package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestComponentFollowsLateInit(t *testing.T) {
	// Created before the handler is installed, like package-level loggers.
	log := Component("store").With("backend", "ram")

	var buf bytes.Buffer
	InitWriter(&buf, slog.LevelInfo, false)

	log.Info("flush completed", "quanta", 7)

	out := buf.String()
	for _, want := range []string{"component=store", "backend=ram", "quanta=7", "flush completed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestComponentRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, slog.LevelWarn, true)

	log := Component("timer")
	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered: %q", out)
	}
	if !strings.Contains(out, `"component":"timer"`) {
		t.Errorf("json output missing component: %q", out)
	}
}
