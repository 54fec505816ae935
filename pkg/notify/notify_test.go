package notify

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestMultiFansOutInOrder(t *testing.T) {
	t.Parallel()

	var got []string
	record := func(prefix string) Sink {
		return Func(func(kind Kind, message string) {
			got = append(got, prefix+":"+string(kind)+":"+message)
		})
	}

	Multi(record("a"), nil, record("b")).Notify(KindError, "refused")

	want := []string{"a:error:refused", "b:error:refused"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestTerminalPlain(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := NewTerminal(&buf, true)
	sink.Notify(KindSuccess, "Driver created")
	sink.Notify(KindError, "Phone: Enter a valid phone number")

	want := "✓ Driver created\n✗ Phone: Enter a valid phone number\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}

func TestLoggerLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	sink := Logger(logger)
	sink.Notify(KindSuccess, "saved")
	sink.Notify(KindError, "failed")

	out := buf.String()
	if !strings.Contains(out, "level=INFO") || !strings.Contains(out, "kind=success") {
		t.Fatalf("expected info line for success, got %q", out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "message=failed") {
		t.Fatalf("expected warn line for error, got %q", out)
	}

	Logger(nil).Notify(KindError, "dropped")
	Discard.Notify(KindError, "dropped")
}
