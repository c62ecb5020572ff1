package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New("info", "json", &buf)
	l.Debug("hidden")
	l.Info("hello", "group_id", "g1")
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("not a single JSON line: %q", buf.String())
	}
	if m["msg"] != "hello" || m["group_id"] != "g1" {
		t.Errorf("unexpected record: %v", m)
	}
}

func TestNewTextAndTint(t *testing.T) {
	for _, format := range []string{"text", "tint"} {
		var buf bytes.Buffer
		New("debug", format, &buf).Debug("visible", "k", "v")
		if !strings.Contains(buf.String(), "visible") {
			t.Errorf("%s: record missing: %q", format, buf.String())
		}
	}
}
