package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
	if Named("test") == nil {
		t.Fatal("named logger is nil")
	}
}

func TestLoggerWritesFields(t *testing.T) {
	defer SetLevel(slog.LevelInfo)
	SetLevel(slog.LevelInfo)

	var buf bytes.Buffer
	l := New(&buf).Named("loader")
	ctx := context.Background()

	l.Info(ctx, "loaded plays", Int("plays", 42), String("file", "play_by_play_2023.csv.gz"))
	l.Warn(ctx, "skipped", Error(errors.New("boom")))
	l.Debug(ctx, "hidden at info")

	out := buf.String()
	for _, want := range []string{"loaded plays", "plays=42", "component=loader", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "hidden at info") {
		t.Errorf("debug record written at info level:\n%s", out)
	}
}

func TestSetLevelString(t *testing.T) {
	defer SetLevel(slog.LevelInfo)

	var buf bytes.Buffer
	l := New(&buf)
	for _, lvl := range []string{"debug", "INFO", "warning", " error ", ""} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("SetLevelString(%q): %v", lvl, err)
		}
	}
	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}

	if err := SetLevelString("debug"); err != nil {
		t.Fatal(err)
	}
	l.Debug(context.Background(), "now visible")
	if !strings.Contains(buf.String(), "now visible") || !strings.Contains(buf.String(), "source=") {
		t.Errorf("expected debug record with source, got:\n%s", buf.String())
	}
}
