// Package notify delivers user-facing success and error notices raised by
// the wizard controller.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fatih/color"
)

// Kind classifies a notification.
type Kind string

const (
	// KindSuccess reports a completed submission.
	KindSuccess Kind = "success"
	// KindError reports a refusal or a failed submission.
	KindError Kind = "error"
)

// Sink receives notifications.
type Sink interface {
	Notify(kind Kind, message string)
}

// Func adapts a plain function to Sink.
type Func func(kind Kind, message string)

// Notify calls f.
func (f Func) Notify(kind Kind, message string) {
	if f != nil {
		f(kind, message)
	}
}

// Discard drops every notification.
var Discard Sink = Func(nil)

// Multi fans a notification out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			out = append(out, sink)
		}
	}
	return out
}

type multi []Sink

func (m multi) Notify(kind Kind, message string) {
	for _, sink := range m {
		sink.Notify(kind, message)
	}
}

// Logger records notifications on a structured logger. Errors are logged at
// warn level.
func Logger(logger *slog.Logger) Sink {
	if logger == nil {
		return Discard
	}
	return Func(func(kind Kind, message string) {
		level := slog.LevelInfo
		if kind == KindError {
			level = slog.LevelWarn
		}
		logger.Log(context.Background(), level, "wizard notification", "kind", string(kind), "message", message)
	})
}

// Terminal prints colored notices to w.
type Terminal struct {
	mu      sync.Mutex
	w       io.Writer
	success *color.Color
	failure *color.Color
}

// NewTerminal constructs a terminal sink. When plain is true colors are
// disabled for this sink only.
func NewTerminal(w io.Writer, plain bool) *Terminal {
	t := &Terminal{
		w:       w,
		success: color.New(color.FgGreen, color.Bold),
		failure: color.New(color.FgRed, color.Bold),
	}
	if plain {
		t.success.DisableColor()
		t.failure.DisableColor()
	}
	return t
}

// Notify writes a single line for the notification.
func (t *Terminal) Notify(kind Kind, message string) {
	if t == nil || t.w == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	switch kind {
	case KindSuccess:
		fmt.Fprintf(t.w, "%s %s\n", t.success.Sprint("✓"), message)
	default:
		fmt.Fprintf(t.w, "%s %s\n", t.failure.Sprint("✗"), message)
	}
}
