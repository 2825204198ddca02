package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewSelectsFormat(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"json":   `"msg":"hello"`,
		"text":   "msg=hello",
		"pretty": "hello",
		"":       "hello",
	}
	for format, want := range cases {
		var buf bytes.Buffer
		New(format, slog.LevelInfo, &buf).Info("hello")
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("format %q: expected %q in output, got: %s", format, want, buf.String())
		}
	}
}

func TestJSONLevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelWarn)
	log.Info("should not appear")
	log.Debug("also should not appear")

	if buf.Len() > 0 {
		t.Fatalf("expected no output for info/debug at warn level, got: %s", buf.String())
	}

	log.Warn("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Fatalf("expected warn message in output, got: %s", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()
	log := Discard()
	log.Error("dropped")
	log.With("slot", 1).Info("dropped")
}

func TestWith(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	child := JSON(&buf, slog.LevelInfo).With("component", "replay")
	child.Info("child message")

	output := buf.String()
	if !strings.Contains(output, `"component":"replay"`) {
		t.Fatalf("expected component=replay in output, got: %s", output)
	}
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), JSON(&buf, slog.LevelInfo))

	FromContext(ctx).Info("roundtrip test")
	if !strings.Contains(buf.String(), "roundtrip test") {
		t.Fatalf("expected message via context logger, got: %s", buf.String())
	}
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext with no logger returned nil")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tc := range tests {
		if got := ParseLevel(tc.input); got != tc.expected {
			t.Errorf("ParseLevel(%q): expected %v, got %v", tc.input, tc.expected, got)
		}
	}
}

func TestPrettyHandlerEnabled(t *testing.T) {
	t.Parallel()
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info to be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("expected error to be enabled at warn level")
	}
}

func TestPrettyHandlerAttrsAndGroups(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil).WithAttrs([]slog.Attr{slog.Int("slot", 3)}).WithGroup("draft")
	slog.New(h).Info("proposed", "count", 2, "note", "two words")

	output := buf.String()
	for _, want := range []string{"slot=3", "draft.count=2", `draft.note="two words"`} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestPrettyHandlerAbbreviatesTokens(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	toks := make([]int32, maxTokensShown+4)
	for i := range toks {
		toks[i] = int32(i)
	}
	Pretty(&buf, slog.LevelInfo).Info("history", "tokens", toks, "short", []int32{7, 8})

	output := buf.String()
	if !strings.Contains(output, "…+4]") {
		t.Fatalf("expected abbreviated token list, got: %s", output)
	}
	if !strings.Contains(output, "short=[7 8]") {
		t.Fatalf("expected short token list, got: %s", output)
	}
}
