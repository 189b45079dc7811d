package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/sweeney/sensor-node/internal/config"
)

func TestNewJSONIncludesDefaultFields(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "json", "info", "1.2.3")

	l.Info("hello", "pin", 17)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["service"] != "sensor-node" {
		t.Errorf("service = %v", rec["service"])
	}
	if rec["version"] != "1.2.3" {
		t.Errorf("version = %v", rec["version"])
	}
	if rec["pin"] != float64(17) {
		t.Errorf("pin = %v", rec["pin"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "text", "warn")

	l.Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}

	l.Warn("loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Errorf("warn should be logged, got %q", buf.String())
	}
}

func TestSetLevelAffectsDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	root := NewWriter(&buf, "text", "error")
	child := root.Component("dutycycle")

	child.Info("before")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing logged, got %q", buf.String())
	}

	root.SetLevel("debug")
	child.Debug("after")
	out := buf.String()
	if !strings.Contains(out, "after") || !strings.Contains(out, "component=dutycycle") {
		t.Errorf("expected debug line with component attr, got %q", out)
	}
	if child.Level() != "debug" {
		t.Errorf("child level = %q, want debug", child.Level())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelNameRoundTrip(t *testing.T) {
	for _, name := range Levels {
		if got := LevelName(ParseLevel(name)); got != name {
			t.Errorf("LevelName(ParseLevel(%q)) = %q", name, got)
		}
	}
}

func TestNewFromConfig(t *testing.T) {
	l := New(config.LoggingConfig{Level: "debug", Format: "json", Output: "stdout"}, "dev")
	if l.Level() != "debug" {
		t.Errorf("Level() = %q, want debug", l.Level())
	}
}
