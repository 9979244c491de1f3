package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
	Get().Info(context.Background(), "test message", String("k", "v"))
}

func TestLoggerNamed(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelDebug).Named("resolver")

	l.Debug(context.Background(), "strategy fell through", String("strategy", "email"), Duration("took", time.Millisecond))

	out := buf.String()
	if !strings.Contains(out, "component=resolver") {
		t.Fatalf("expected component attribute, got %q", out)
	}
	if !strings.Contains(out, "strategy=email") {
		t.Fatalf("expected strategy attribute, got %q", out)
	}
	if !strings.Contains(out, "source=") || !strings.Contains(out, "logger_test.go") {
		t.Fatalf("expected caller source pointing at the test file, got %q", out)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelWarn)

	l.Info(context.Background(), "hidden")
	l.Warn(context.Background(), "shown", Error(errors.New("boom")), Bool("fell_back", true))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "error=boom") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestNopFatalDoesNotExit(t *testing.T) {
	Nop().Fatal(context.Background(), "ignored")
}

func TestSetLevelString(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatal(err)
	}
	for _, lvl := range []string{"debug", "INFO", "warning", "error", ""} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("level %q: unexpected error %v", lvl, err)
		}
	}
	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}
