package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelInfo, "json").Named("gateway")

	log.Info(context.Background(), "existence check", String("email", "ana@allowed.com"), Int("matches", 2), Error(errors.New("boom")))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if line["msg"] != "existence check" {
		t.Fatalf("unexpected msg %v", line["msg"])
	}
	if line["component"] != "gateway" {
		t.Fatalf("expected component field, got %v", line["component"])
	}
	if line["email"] != "ana@allowed.com" || line["matches"] != float64(2) {
		t.Fatalf("unexpected fields %v", line)
	}
	if line["error"] != "boom" {
		t.Fatalf("expected error string, got %v", line["error"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelWarn, "text")

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	for input, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLevel(input)
		if err != nil || got != want {
			t.Fatalf("%q: expected %v, got %v (%v)", input, want, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestGetWithoutInit(t *testing.T) {
	if Get() == nil {
		t.Fatalf("expected fallback logger")
	}
	if err := Init("debug", "json"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if Named("test") == nil {
		t.Fatalf("expected named logger")
	}
}
