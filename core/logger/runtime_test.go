package logger

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"log/slog"
)

func TestWithLoggerRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	lw := newLineWriter([]io.Writer{buf})
	handler := newStructuredHandler(handlerConfig{
		level:  slog.LevelDebug,
		writer: lw,
		format: formatKV,
	})
	log := slog.New(handler).With("component", "flow")

	ctx := WithLogger(context.Background(), log)
	if FromContext(ctx) != log {
		t.Fatal("context logger not returned")
	}

	// LogEvent with a nil logger falls back to the context logger.
	LogEvent(ctx, nil, slog.LevelDebug, "turn.dispatch", slog.String("step", "await_name"))
	if err := lw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	line := buf.String()
	if !strings.Contains(line, "event=turn.dispatch") || !strings.Contains(line, "component=flow") {
		t.Errorf("unexpected line %q", line)
	}
}

func TestWithLoggerNilLoggerKeepsContext(t *testing.T) {
	ctx := context.Background()
	if WithLogger(ctx, nil) != ctx {
		t.Error("nil logger should leave context untouched")
	}
}
