package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, "warn")
	if err != nil {
		t.Fatalf("NewWithWriter: %v", err)
	}
	log.Info("hidden")
	log.Warn("shown", "job_id", "j1")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "job_id=j1") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{"": slog.LevelInfo, "debug": slog.LevelDebug, "ERROR": slog.LevelError} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestContextRoundTrip(t *testing.T) {
	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	if FromContext(NewContext(context.Background(), l)) != l {
		t.Fatal("logger not retrieved from context")
	}
	if FromContext(context.Background()) != slog.Default() {
		t.Fatal("expected default logger")
	}
}
