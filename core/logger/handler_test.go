package logger

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"log/slog"
)

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	lw := newLineWriter([]io.Writer{buf})
	handler := newStructuredHandler(handlerConfig{
		level:  slog.LevelInfo,
		writer: lw,
		format: formatKV,
	})
	ctx := WithRID(context.Background(), "wa:abc123")
	ctx = WithUserID(ctx, "+10000000001")

	log := slog.New(handler).With("component", "flow")
	LogEvent(ctx, log, slog.LevelInfo, "test.event",
		slog.String("status", "ok"),
		slog.String("step", "await_name"),
	)
	if err := lw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log line")
	}
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=flow", "event=test.event", "status=ok", "rid=wa:abc123", "user_id=+10000000001", "step=await_name"}
	if len(tokens) != len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	lw := newLineWriter([]io.Writer{buf})
	handler := newStructuredHandler(handlerConfig{
		level:  slog.LevelInfo,
		writer: lw,
		format: formatJSON,
	})

	log := slog.New(handler).With("component", "wa")
	LogEvent(context.Background(), log, slog.LevelWarn, "send.fail",
		slog.String("err", "timeout"),
		slog.Duration("duration", 0),
	)
	if err := lw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	line := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(line, `{"ts":`) {
		t.Fatalf("expected ts first, got: %s", line)
	}
	if !strings.Contains(line, `"level":"WARN"`) {
		t.Fatalf("missing level: %s", line)
	}
	if !strings.Contains(line, `"component":"wa"`) {
		t.Fatalf("missing component: %s", line)
	}
	if strings.Index(line, `"component"`) > strings.Index(line, `"event"`) {
		t.Fatalf("component should precede event: %s", line)
	}
}

func TestStructuredHandlerDurationNormalized(t *testing.T) {
	buf := &bytes.Buffer{}
	lw := newLineWriter([]io.Writer{buf})
	handler := newStructuredHandler(handlerConfig{
		level:  slog.LevelDebug,
		writer: lw,
		format: formatKV,
	})

	log := slog.New(handler)
	LogEvent(context.Background(), log, slog.LevelInfo, "turn.handled",
		slog.Duration("duration", 1500000),
	)
	if err := lw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if !strings.Contains(buf.String(), "duration_ms=2") {
		t.Fatalf("expected duration_ms, got: %s", buf.String())
	}
}

func TestSanitizeLimit(t *testing.T) {
	in := "ab\x00cd\x7fef"
	if got := Sanitize(in); got != "abcdef" {
		t.Fatalf("Sanitize = %q", got)
	}
	if got := SanitizeLimit("abcdef", 3); got != "abc" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if got := SanitizeLimit("abc", 0); got != "" {
		t.Fatalf("SanitizeLimit zero max = %q", got)
	}
}
